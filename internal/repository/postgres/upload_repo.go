package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/domain"
)

type UploadRepo struct {
	pool *pgxpool.Pool
}

func NewUploadRepo(pool *pgxpool.Pool) *UploadRepo {
	return &UploadRepo{pool: pool}
}

func (r *UploadRepo) Create(ctx context.Context, u *domain.Upload) error {
	query := `
		INSERT INTO uploads (id, owner_id, kind, context_type, context_id, content_type, size_bytes, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.OwnerID, u.Kind, u.ContextType, u.ContextID, u.ContentType, u.SizeBytes, u.StoragePath, u.CreatedAt,
	)
	return err
}

func (r *UploadRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Upload, error) {
	query := `
		SELECT id, owner_id, kind, context_type, context_id, content_type, size_bytes, storage_path, created_at
		FROM uploads
		WHERE id = $1`
	var u domain.Upload
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.OwnerID, &u.Kind, &u.ContextType, &u.ContextID, &u.ContentType, &u.SizeBytes, &u.StoragePath, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
