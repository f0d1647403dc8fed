package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
	"github.com/vedran77/veil/internal/repository/memory"
)

type fakeSocket struct {
	id string

	mu     sync.Mutex
	frames []Event
	closed bool
}

var socketSeq int

func newFakeSocket() *fakeSocket {
	socketSeq++
	return &fakeSocket{id: fmt.Sprintf("sock-%d", socketSeq)}
}

func (f *fakeSocket) ID() string { return f.id }

func (f *fakeSocket) Send(data []byte) error {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, e)
	f.mu.Unlock()
	return nil
}

func (f *fakeSocket) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeSocket) Close(string) {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSocket) events(eventType string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.frames {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeSocket) count(eventType string) int { return len(f.events(eventType)) }

func (f *fakeSocket) last(t *testing.T, eventType string) Event {
	t.Helper()
	evs := f.events(eventType)
	require.NotEmpty(t, evs, "no %s received", eventType)
	return evs[len(evs)-1]
}

func (f *fakeSocket) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

func decode[T any](t *testing.T, e Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(e.Payload, &v))
	return v
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every timer that has not been stopped.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	pending := make([]*fakeTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.fn()
	}
}

type fakeVoice struct {
	mu    sync.Mutex
	ended []uuid.UUID
}

func (v *fakeVoice) EndForContext(_ context.Context, _ string, id uuid.UUID) error {
	v.mu.Lock()
	v.ended = append(v.ended, id)
	v.mu.Unlock()
	return nil
}

type fixture struct {
	ctx   context.Context
	hub   *Hub
	repos repository.Repositories
	clock *fakeClock
	sched *fakeScheduler
	voice *fakeVoice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		repos: memory.New().Repositories(),
		clock: &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		sched: &fakeScheduler{},
		voice: &fakeVoice{},
	}
	f.hub = NewHub(Deps{
		Repos:     f.repos,
		Voice:     f.voice,
		Scheduler: f.sched,
		Now:       f.clock.Now,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

func (f *fixture) mask(t *testing.T, userID uuid.UUID, name string) *domain.Mask {
	t.Helper()
	m := &domain.Mask{
		ID:          uuid.New(),
		UserID:      userID,
		DisplayName: name,
		Color:       "#aabbcc",
		AvatarSeed:  name,
		CreatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.repos.Masks.Create(f.ctx, m))
	return m
}

// room creates a room hosted by hostMask. A zero ttl means no expiry.
func (f *fixture) room(t *testing.T, hostMask *domain.Mask, ttl time.Duration) *domain.Room {
	t.Helper()
	r := &domain.Room{
		ID:        uuid.New(),
		Title:     "late night",
		CreatedBy: hostMask.UserID,
		CreatedAt: f.clock.Now(),
	}
	if ttl > 0 {
		exp := f.clock.Now().Add(ttl)
		r.ExpiresAt = &exp
	}
	require.NoError(t, f.repos.Rooms.Create(f.ctx, r))
	require.NoError(t, f.repos.Rooms.AddMember(f.ctx, &domain.RoomMembership{
		ID:       uuid.New(),
		RoomID:   r.ID,
		MaskID:   hostMask.ID,
		Role:     domain.RoomRoleHost,
		JoinedAt: f.clock.Now(),
	}))
	return r
}

func (f *fixture) connect(userID uuid.UUID) (*Session, *fakeSocket) {
	sock := newFakeSocket()
	return f.hub.Connect(sock, userID), sock
}

// server creates a server owned by ownerID in the given identity mode, with one channel.
func (f *fixture) server(t *testing.T, ownerID uuid.UUID, ownerMask *domain.Mask, mode string) (*domain.Server, *domain.Channel) {
	t.Helper()
	srv := &domain.Server{ID: uuid.New(), Name: "guild", OwnerID: ownerID, IdentityMode: mode, CreatedAt: f.clock.Now()}
	require.NoError(t, f.repos.Servers.Create(f.ctx, srv))
	f.addServerMember(t, srv, ownerID, ownerMask, domain.ServerRoleOwner)

	ch := &domain.Channel{ID: uuid.New(), ServerID: srv.ID, Name: "general", Type: domain.ChannelTypeText, CreatedBy: ownerID, CreatedAt: f.clock.Now()}
	require.NoError(t, f.repos.Channels.Create(f.ctx, ch))
	return srv, ch
}

func (f *fixture) addServerMember(t *testing.T, srv *domain.Server, userID uuid.UUID, mask *domain.Mask, role string) {
	t.Helper()
	require.NoError(t, f.repos.Servers.AddMember(f.ctx, &domain.ServerMember{
		ServerID:     srv.ID,
		UserID:       userID,
		Role:         role,
		ServerMaskID: mask.ID,
		JoinedAt:     f.clock.Now(),
	}))
}
