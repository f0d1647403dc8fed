package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
)

type UploadRepo struct {
	s *Store
}

func (r *UploadRepo) Create(_ context.Context, upload *domain.Upload) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.uploads[upload.ID] = *upload
	return nil
}

func (r *UploadRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Upload, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.uploads[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
