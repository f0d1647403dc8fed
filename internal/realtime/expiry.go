package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

// expiryTimeout bounds the work done by one timer callback.
const expiryTimeout = 30 * time.Second

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// TimeScheduler schedules with the runtime timer.
type TimeScheduler struct{}

func (TimeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// EnsureExpiryTimer arms the room's expiry timer unless one is pending.
// Rooms without an expiry, or already past it, are left alone.
func (h *Hub) EnsureExpiryTimer(room *domain.Room) {
	if room.ExpiresAt == nil {
		return
	}
	delay := room.ExpiresAt.Sub(h.now())
	if delay <= 0 {
		return
	}

	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if _, ok := h.timers[room.ID]; ok {
		return
	}

	roomID := room.ID
	h.timers[roomID] = h.sched.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
		defer cancel()
		h.ExpireRoom(ctx, roomID)
	})
}

// ExpireRoom tears down a room's live state: the timer is cancelled, every
// socket is detached without MEMBER_LEFT and told ROOM_EXPIRED, and the
// room's voice session is ended. Running it again is a no-op.
func (h *Hub) ExpireRoom(ctx context.Context, roomID uuid.UUID) {
	h.timersMu.Lock()
	if t, ok := h.timers[roomID]; ok {
		t.Stop()
		delete(h.timers, roomID)
	}
	h.timersMu.Unlock()

	sessions := h.registry.DetachWhere(RoomKey(roomID), nil)
	for _, s := range sessions {
		h.emit(s, EventRoomExpired, RoomExpiredPayload{RoomID: roomID})
	}

	if h.voice != nil {
		if err := h.voice.EndForContext(ctx, domain.VoiceContextRoom, roomID); err != nil {
			h.logger.Warn("ending room voice session", "room", roomID, "error", err)
		}
	}

	if len(sessions) > 0 {
		h.logger.Info("room expired", "room", roomID, "sessions", len(sessions))
	}
}

// Sweep expires rooms whose time already passed and arms timers for the rest.
// It runs once before the server starts accepting connections.
func (h *Hub) Sweep(ctx context.Context) error {
	rooms, err := h.repos.Rooms.ListExpiring(ctx)
	if err != nil {
		return fmt.Errorf("listing expiring rooms: %w", err)
	}

	now := h.now()
	expired := 0
	for i := range rooms {
		room := &rooms[i]
		if room.IsExpired(now) {
			h.ExpireRoom(ctx, room.ID)
			expired++
			continue
		}
		h.EnsureExpiryTimer(room)
	}

	h.logger.Info("expiry sweep finished", "rooms", len(rooms), "expired", expired)
	return nil
}

// pendingTimers reports how many expiry timers are armed.
func (h *Hub) pendingTimers() int {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	return len(h.timers)
}
