package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type RoomRepo struct {
	s *Store
}

func (r *RoomRepo) Create(_ context.Context, room *domain.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rooms[room.ID] = *room
	return nil
}

func (r *RoomRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	room, ok := r.s.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (r *RoomRepo) SetLocked(_ context.Context, id uuid.UUID, locked bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if room, ok := r.s.rooms[id]; ok {
		room.Locked = locked
		r.s.rooms[id] = room
	}
	return nil
}

func (r *RoomRepo) ListExpiring(_ context.Context) ([]domain.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rooms []domain.Room
	for _, room := range r.s.rooms {
		if room.ExpiresAt != nil {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (r *RoomRepo) AddMember(_ context.Context, m *domain.RoomMembership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{m.RoomID, m.MaskID}
	if _, ok := r.s.roomMembers[key]; ok {
		return repository.ErrDuplicate
	}
	r.s.roomMembers[key] = *m
	return nil
}

func (r *RoomRepo) GetMember(_ context.Context, roomID, maskID uuid.UUID) (*domain.RoomMembership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.roomMembers[pairKey{roomID, maskID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *RoomRepo) RemoveMember(_ context.Context, roomID, maskID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.roomMembers, pairKey{roomID, maskID})
	return nil
}

func (r *RoomRepo) CreateModeration(_ context.Context, mod *domain.RoomModeration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.moderations = append(r.s.moderations, *mod)
	return nil
}

func (r *RoomRepo) ActiveMute(_ context.Context, roomID, maskID uuid.UUID, now time.Time) (*domain.RoomModeration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *domain.RoomModeration
	for _, mod := range r.s.moderations {
		if mod.RoomID != roomID || mod.Action != domain.ModerationMute || mod.TargetMaskID == nil || *mod.TargetMaskID != maskID {
			continue
		}
		if mod.ExpiresAt == nil || !mod.ExpiresAt.After(now) {
			continue
		}
		if found == nil || mod.ExpiresAt.After(*found.ExpiresAt) {
			m := mod
			found = &m
		}
	}
	return found, nil
}

func (r *RoomRepo) ListActiveMutes(_ context.Context, roomID uuid.UUID, now time.Time) ([]domain.RoomModeration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var mutes []domain.RoomModeration
	for _, mod := range r.s.moderations {
		if mod.RoomID == roomID && mod.Action == domain.ModerationMute && mod.ExpiresAt != nil && mod.ExpiresAt.After(now) {
			mutes = append(mutes, mod)
		}
	}
	return mutes, nil
}

func (r *RoomRepo) HasExile(_ context.Context, roomID, maskID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, mod := range r.s.moderations {
		if mod.RoomID == roomID && mod.Action == domain.ModerationExile && mod.TargetMaskID != nil && *mod.TargetMaskID == maskID {
			return true, nil
		}
	}
	return false, nil
}

func (r *RoomRepo) CreateMessage(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.roomMessages = append(r.s.roomMessages, *msg)
	return nil
}

func (r *RoomRepo) ListMessagesSince(_ context.Context, roomID uuid.UUID, since *time.Time) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var msgs []domain.Message
	for _, msg := range r.s.roomMessages {
		if msg.RoomID != roomID {
			continue
		}
		if since != nil && msg.CreatedAt.Before(*since) {
			continue
		}
		msg.Author = r.s.author(msg.MaskID)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
