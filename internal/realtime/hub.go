// Package realtime coordinates live sockets: who is present in which room,
// DM thread or channel, and what each of them is told when state changes.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/permission"
	"github.com/vedran77/veil/internal/repository"
)

// RecentMessageLimit caps the history sent with DM and channel state.
const RecentMessageLimit = 50

// VoiceTerminator ends the voice session attached to a context.
type VoiceTerminator interface {
	EndForContext(ctx context.Context, contextType string, contextID uuid.UUID) error
}

var (
	ErrMaskNotFound    = apperr.NotFound("Mask")
	ErrMaskNotOwned    = apperr.Forbidden("mask does not belong to you")
	ErrRoomNotFound    = apperr.NotFound("Room")
	ErrRoomExpired     = apperr.Gone("room has expired")
	ErrRoomLocked      = apperr.Locked("room is locked")
	ErrExiled          = apperr.Forbidden("you have been exiled from this room")
	ErrNotRoomMember   = apperr.Forbidden("not a member of this room")
	ErrMuted           = apperr.Forbidden("you are muted in this room")
	ErrThreadNotFound  = apperr.NotFound("DM thread")
	ErrNotParticipant  = apperr.Forbidden("not a participant of this thread")
	ErrChannelNotFound = apperr.NotFound("Channel")
	ErrServerNotFound  = apperr.NotFound("Server")
	ErrNotServerMember = apperr.Forbidden("not a member of this server")
	ErrNotJoined       = apperr.Forbidden("join the context before sending")
	ErrRateLimited     = apperr.RateLimited("you are sending messages too fast")
)

type Deps struct {
	Repos     repository.Repositories
	Resolver  *permission.Resolver
	Voice     VoiceTerminator
	Scheduler Scheduler
	Now       func() time.Time
	Logger    *slog.Logger
}

// Hub owns the registry and every socket-facing operation.
type Hub struct {
	registry *Registry
	repos    repository.Repositories
	resolver *permission.Resolver
	voice    VoiceTerminator
	sched    Scheduler
	now      func() time.Time
	logger   *slog.Logger

	timersMu sync.Mutex
	timers   map[uuid.UUID]Timer
}

func NewHub(d Deps) *Hub {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Scheduler == nil {
		d.Scheduler = TimeScheduler{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Resolver == nil {
		d.Resolver = permission.NewResolver(d.Repos.Servers, d.Repos.Channels)
	}
	return &Hub{
		registry: NewRegistry(),
		repos:    d.Repos,
		resolver: d.Resolver,
		voice:    d.Voice,
		sched:    d.Scheduler,
		now:      d.Now,
		logger:   d.Logger.With("component", "realtime"),
		timers:   make(map[uuid.UUID]Timer),
	}
}

// SetVoice wires the voice broker after construction.
func (h *Hub) SetVoice(v VoiceTerminator) {
	h.voice = v
}

func (h *Hub) Registry() *Registry { return h.registry }

// Connect registers a freshly authenticated socket.
func (h *Hub) Connect(socket Socket, userID uuid.UUID) *Session {
	s := h.registry.Add(socket, userID)
	h.logger.Debug("socket connected", "socket", socket.ID(), "user", userID, "total", h.registry.Len())
	return s
}

// Disconnect leaves every context the session is in and forgets it.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	for _, kind := range []domain.ContextKind{domain.ContextRoom, domain.ContextDM, domain.ContextChannel} {
		h.leave(ctx, s, kind, true)
	}
	h.registry.Remove(s.ID())
	h.logger.Debug("socket disconnected", "socket", s.ID(), "user", s.UserID, "total", h.registry.Len())
}

// Shutdown stops all expiry timers and closes every socket.
func (h *Hub) Shutdown() {
	h.timersMu.Lock()
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
	h.timersMu.Unlock()

	h.registry.Shutdown("server shutting down")
}

// SendError reports err to one socket as an ERROR event. Unexpected errors
// are logged and replaced by a generic message.
func (h *Hub) SendError(s *Session, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal {
		h.logger.Error("socket operation failed", "socket", s.ID(), "user", s.UserID, "error", err)
	}
	h.emit(s, EventError, ErrorPayload{Code: ae.Code(), Message: ae.Message})
}

// Pong answers a client PING.
func (h *Hub) Pong(s *Session) {
	h.emit(s, EventPong, nil)
}

func (h *Hub) send(s *Session, data []byte) {
	sock := s.socket
	if !sock.IsOpen() {
		return
	}
	if err := sock.Send(data); err != nil {
		h.logger.Debug("socket send failed", "socket", sock.ID(), "error", err)
	}
}

// emit sends one event to one session.
func (h *Hub) emit(s *Session, eventType string, payload any) {
	data, err := encodeEvent(eventType, payload, h.now())
	if err != nil {
		h.logger.Error("encoding event", "type", eventType, "error", err)
		return
	}
	h.send(s, data)
}

// broadcast sends one event to every session in key except exclude.
func (h *Hub) broadcast(key ContextKey, eventType string, payload any, exclude *Session) {
	data, err := encodeEvent(eventType, payload, h.now())
	if err != nil {
		h.logger.Error("encoding event", "type", eventType, "error", err)
		return
	}
	for _, s := range h.registry.ContextSessions(key) {
		if exclude != nil && s == exclude {
			continue
		}
		h.send(s, data)
	}
}

// ownedMask loads maskID and checks userID owns it.
func (h *Hub) ownedMask(ctx context.Context, userID, maskID uuid.UUID) (*domain.Mask, error) {
	mask, err := h.repos.Masks.GetByID(ctx, maskID)
	if err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, ErrMaskNotFound
	}
	if !mask.OwnedBy(userID) {
		return nil, ErrMaskNotOwned
	}
	return mask, nil
}

// liveRoom loads a room and runs expiry if its time has passed.
func (h *Hub) liveRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := h.repos.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.IsExpired(h.now()) {
		h.ExpireRoom(ctx, roomID)
		return nil, ErrRoomExpired
	}
	return room, nil
}
