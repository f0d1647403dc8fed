package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type VoiceRepo struct {
	s *Store
}

func (r *VoiceRepo) activeLocked(contextType string, contextID uuid.UUID) (domain.VoiceSession, bool) {
	for _, vs := range r.s.voiceSessions {
		if vs.ContextType == contextType && vs.ContextID == contextID && vs.EndedAt == nil {
			return vs, true
		}
	}
	return domain.VoiceSession{}, false
}

func (r *VoiceRepo) GetActiveSession(_ context.Context, contextType string, contextID uuid.UUID) (*domain.VoiceSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	vs, ok := r.activeLocked(contextType, contextID)
	if !ok {
		return nil, nil
	}
	return &vs, nil
}

func (r *VoiceRepo) GetSession(_ context.Context, id uuid.UUID) (*domain.VoiceSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	vs, ok := r.s.voiceSessions[id]
	if !ok {
		return nil, nil
	}
	return &vs, nil
}

func (r *VoiceRepo) CreateSession(_ context.Context, session *domain.VoiceSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.activeLocked(session.ContextType, session.ContextID); ok {
		return repository.ErrDuplicate
	}
	r.s.voiceSessions[session.ID] = *session
	return nil
}

func (r *VoiceRepo) EndSession(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	vs, ok := r.s.voiceSessions[id]
	if !ok || vs.EndedAt != nil {
		return false, nil
	}
	vs.EndedAt = &at
	r.s.voiceSessions[id] = vs
	return true, nil
}

func (r *VoiceRepo) AddParticipant(_ context.Context, p *domain.VoiceParticipant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.voiceParticipants = append(r.s.voiceParticipants, *p)
	return nil
}

func (r *VoiceRepo) LastParticipant(_ context.Context, sessionID, userID, maskID uuid.UUID) (*domain.VoiceParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for i := len(r.s.voiceParticipants) - 1; i >= 0; i-- {
		p := r.s.voiceParticipants[i]
		if p.SessionID == sessionID && p.UserID == userID && p.MaskID == maskID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *VoiceRepo) MarkUserLeft(_ context.Context, sessionID, userID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.voiceParticipants {
		p := &r.s.voiceParticipants[i]
		if p.SessionID == sessionID && p.UserID == userID && p.LeftAt == nil {
			left := at
			p.LeftAt = &left
		}
	}
	return nil
}

func (r *VoiceRepo) ListActiveParticipants(_ context.Context, sessionID uuid.UUID) ([]domain.VoiceParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var parts []domain.VoiceParticipant
	for _, p := range r.s.voiceParticipants {
		if p.SessionID == sessionID && p.LeftAt == nil {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

func (r *VoiceRepo) SetServerMuted(_ context.Context, sessionID, maskID uuid.UUID, muted bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.voiceParticipants {
		p := &r.s.voiceParticipants[i]
		if p.SessionID == sessionID && p.MaskID == maskID && p.LeftAt == nil {
			p.IsServerMuted = muted
		}
	}
	return nil
}
