package realtime

import (
	"sync"
	"time"
)

const (
	RateWindow      = 4 * time.Second
	RoomRateLimit   = 8
	DirectRateLimit = 10
)

// SlidingWindow admits at most max events in any window-long span.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{window: window, max: max}
}

// Allow records an event at now and reports whether it is within the limit.
// Rejected events are not recorded.
func (w *SlidingWindow) Allow(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.hits[:0]
	for _, t := range w.hits {
		if now.Sub(t) < w.window {
			kept = append(kept, t)
		}
	}
	w.hits = kept

	if len(w.hits) >= w.max {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}
