package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

// ContextKey names one chat context.
type ContextKey struct {
	Kind domain.ContextKind
	ID   uuid.UUID
}

func RoomKey(id uuid.UUID) ContextKey    { return ContextKey{Kind: domain.ContextRoom, ID: id} }
func DMKey(id uuid.UUID) ContextKey      { return ContextKey{Kind: domain.ContextDM, ID: id} }
func ChannelKey(id uuid.UUID) ContextKey { return ContextKey{Kind: domain.ContextChannel, ID: id} }

// Member is the cached display snapshot of whoever a session presents.
type Member struct {
	MaskID      uuid.UUID `json:"maskId"`
	DisplayName string    `json:"displayName"`
	Color       string    `json:"color"`
	AvatarSeed  string    `json:"avatarSeed"`
	Role        string    `json:"role,omitempty"`
}

func memberFromMask(m *domain.Mask, role string) Member {
	return Member{
		MaskID:      m.ID,
		DisplayName: m.DisplayName,
		Color:       m.Color,
		AvatarSeed:  m.AvatarSeed,
		Role:        role,
	}
}

// Presence is a session's attachment to one context.
type Presence struct {
	Key      ContextKey
	UserID   uuid.UUID
	ServerID uuid.UUID // channels only
	Member   Member
}

// Identity is what de-duplicates sockets in a context: the mask in rooms,
// the account everywhere else.
func (p Presence) Identity() uuid.UUID {
	if p.Key.Kind == domain.ContextRoom {
		return p.Member.MaskID
	}
	return p.UserID
}

// Session is one live socket and its presences.
type Session struct {
	socket Socket
	UserID uuid.UUID

	// guarded by Registry.mu
	presence map[domain.ContextKind]*Presence

	limiters map[domain.ContextKind]*SlidingWindow
}

func (s *Session) ID() string     { return s.socket.ID() }
func (s *Session) Socket() Socket { return s.socket }

func (s *Session) limiter(kind domain.ContextKind) *SlidingWindow {
	return s.limiters[kind]
}

// Registry indexes live sessions by socket and by context.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	contexts map[ContextKey]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		contexts: make(map[ContextKey]map[string]*Session),
	}
}

// Add registers a socket for userID.
func (r *Registry) Add(socket Socket, userID uuid.UUID) *Session {
	s := &Session{
		socket:   socket,
		UserID:   userID,
		presence: make(map[domain.ContextKind]*Presence),
		limiters: map[domain.ContextKind]*SlidingWindow{
			domain.ContextRoom:    NewSlidingWindow(RateWindow, RoomRateLimit),
			domain.ContextDM:      NewSlidingWindow(RateWindow, DirectRateLimit),
			domain.ContextChannel: NewSlidingWindow(RateWindow, DirectRateLimit),
		},
	}

	r.mu.Lock()
	r.sessions[socket.ID()] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(socketID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[socketID]
}

// Remove deletes the session. Callers detach its presences first.
func (r *Registry) Remove(socketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, socketID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// attachResult describes what an Attach changed.
type attachResult struct {
	// Rejoin is set when the session already presented the same identity in
	// the same context; nothing observable changed for other sockets.
	Rejoin bool
	// First is set when no other socket presents the new identity.
	First bool
	// Prev is the replaced presence of the same kind, if any and not a rejoin.
	Prev *Presence
	// PrevLast is set when Prev's identity is no longer present in its context.
	PrevLast bool
}

// Attach stores p as s's presence of p.Key.Kind, replacing any earlier one.
func (r *Registry) Attach(s *Session, p Presence) attachResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res attachResult
	if prev, ok := s.presence[p.Key.Kind]; ok {
		if prev.Key == p.Key && prev.Identity() == p.Identity() {
			stored := p
			s.presence[p.Key.Kind] = &stored
			return attachResult{Rejoin: true}
		}
		r.detachLocked(s, p.Key.Kind)
		res.Prev = prev
		res.PrevLast = !r.presentLocked(prev.Key, prev.Identity(), "")
	}

	res.First = !r.presentLocked(p.Key, p.Identity(), s.ID())

	stored := p
	s.presence[p.Key.Kind] = &stored
	set, ok := r.contexts[p.Key]
	if !ok {
		set = make(map[string]*Session)
		r.contexts[p.Key] = set
	}
	set[s.ID()] = s
	return res
}

// Detach removes s's presence of kind. last reports whether no other socket
// still presents the same identity in that context.
func (r *Registry) Detach(s *Session, kind domain.ContextKind) (p Presence, last, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := s.presence[kind]
	if !ok {
		return Presence{}, false, false
	}
	r.detachLocked(s, kind)
	return *prev, !r.presentLocked(prev.Key, prev.Identity(), ""), true
}

func (r *Registry) detachLocked(s *Session, kind domain.ContextKind) {
	prev, ok := s.presence[kind]
	if !ok {
		return
	}
	delete(s.presence, kind)
	if set, ok := r.contexts[prev.Key]; ok {
		delete(set, s.ID())
		if len(set) == 0 {
			delete(r.contexts, prev.Key)
		}
	}
}

// DetachWhere detaches every session in key whose presence satisfies match and
// returns them. A nil match takes every session.
func (r *Registry) DetachWhere(key ContextKey, match func(Presence) bool) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for _, s := range r.contexts[key] {
		p := s.presence[key.Kind]
		if match != nil && !match(*p) {
			continue
		}
		out = append(out, s)
	}
	for _, s := range out {
		r.detachLocked(s, key.Kind)
	}
	return out
}

// PresenceOf returns a copy of s's presence of kind.
func (r *Registry) PresenceOf(s *Session, kind domain.ContextKind) (Presence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := s.presence[kind]
	if !ok {
		return Presence{}, false
	}
	return *p, true
}

// IsPresent reports whether any socket other than excluding presents identity in key.
func (r *Registry) IsPresent(key ContextKey, identity uuid.UUID, excluding string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presentLocked(key, identity, excluding)
}

func (r *Registry) presentLocked(key ContextKey, identity uuid.UUID, excluding string) bool {
	for id, s := range r.contexts[key] {
		if id == excluding {
			continue
		}
		if p, ok := s.presence[key.Kind]; ok && p.Identity() == identity {
			return true
		}
	}
	return false
}

// ContextSessions snapshots the sessions attached to key.
func (r *Registry) ContextSessions(key ContextKey) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.contexts[key]))
	for _, s := range r.contexts[key] {
		out = append(out, s)
	}
	return out
}

// Presences returns one presence per identity attached to key.
func (r *Registry) Presences(key ContextKey) []Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var out []Presence
	for _, s := range r.contexts[key] {
		p := s.presence[key.Kind]
		if _, dup := seen[p.Identity()]; dup {
			continue
		}
		seen[p.Identity()] = struct{}{}
		out = append(out, *p)
	}
	return out
}

// Find returns every session whose presence of kind matches.
func (r *Registry) Find(kind domain.ContextKind, match func(Presence) bool) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, s := range r.sessions {
		if p, ok := s.presence[kind]; ok && match(*p) {
			out = append(out, s)
		}
	}
	return out
}

// Update rewrites s's presence of kind in place, if it still exists.
func (r *Registry) Update(s *Session, kind domain.ContextKind, fn func(*Presence)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := s.presence[kind]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Shutdown closes every live socket. Sessions are removed as their
// connections wind down.
func (r *Registry) Shutdown(reason string) {
	r.mu.RLock()
	sockets := make([]Socket, 0, len(r.sessions))
	for _, s := range r.sessions {
		sockets = append(sockets, s.socket)
	}
	r.mu.RUnlock()

	for _, sock := range sockets {
		sock.Close(reason)
	}
}
