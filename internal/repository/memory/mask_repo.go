package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

type MaskRepo struct {
	s *Store
}

func (r *MaskRepo) Create(_ context.Context, mask *domain.Mask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.masks[mask.ID] = *mask
	return nil
}

func (r *MaskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Mask, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.masks[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *MaskRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Mask, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var masks []domain.Mask
	for _, m := range r.s.masks {
		if m.UserID == userID {
			masks = append(masks, m)
		}
	}
	slices.SortFunc(masks, func(a, b domain.Mask) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return masks, nil
}

func (r *MaskRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	masks, err := r.ListByUser(ctx, userID)
	return len(masks), err
}

func (r *MaskRepo) Update(_ context.Context, mask *domain.Mask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.masks[mask.ID]; ok {
		r.s.masks[mask.ID] = *mask
	}
	return nil
}

func (r *MaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.masks, id)
	return nil
}
