package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type DMRepo struct {
	s *Store
}

func (r *DMRepo) CreateThread(_ context.Context, thread *domain.DmThread) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.threads {
		if t.UserAID == thread.UserAID && t.UserBID == thread.UserBID {
			return repository.ErrDuplicate
		}
	}
	r.s.threads[thread.ID] = *thread
	return nil
}

func (r *DMRepo) GetThreadByUsers(_ context.Context, userAID, userBID uuid.UUID) (*domain.DmThread, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.threads {
		if t.UserAID == userAID && t.UserBID == userBID {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *DMRepo) GetThreadByID(_ context.Context, id uuid.UUID) (*domain.DmThread, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.threads[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *DMRepo) ListThreads(_ context.Context, userID uuid.UUID) ([]domain.DmThread, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var threads []domain.DmThread
	for _, t := range r.s.threads {
		if t.HasUser(userID) {
			threads = append(threads, t)
		}
	}
	slices.SortFunc(threads, func(a, b domain.DmThread) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return threads, nil
}

func (r *DMRepo) UpsertParticipant(_ context.Context, p *domain.DmParticipant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.dmParticipants[pairKey{p.ThreadID, p.UserID}] = *p
	return nil
}

func (r *DMRepo) ListParticipants(_ context.Context, threadID uuid.UUID) ([]domain.DmParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var parts []domain.DmParticipant
	for key, p := range r.s.dmParticipants {
		if key.a == threadID {
			parts = append(parts, p)
		}
	}
	slices.SortFunc(parts, func(a, b domain.DmParticipant) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	return parts, nil
}

func (r *DMRepo) CreateMessage(_ context.Context, msg *domain.DmMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.dmMessages = append(r.s.dmMessages, *msg)
	return nil
}

func (r *DMRepo) ListMessages(_ context.Context, threadID uuid.UUID, before *uuid.UUID, limit int) ([]domain.DmMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var inThread []domain.DmMessage
	for _, msg := range r.s.dmMessages {
		if msg.ThreadID == threadID {
			inThread = append(inThread, msg)
		}
	}
	msgs := page(inThread, func(m domain.DmMessage) uuid.UUID { return m.ID }, before, limit)
	for i := range msgs {
		msgs[i].Author = r.s.author(msgs[i].MaskID)
	}
	return msgs, nil
}
