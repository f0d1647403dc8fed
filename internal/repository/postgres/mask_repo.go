package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/domain"
)

type MaskRepo struct {
	pool *pgxpool.Pool
}

func NewMaskRepo(pool *pgxpool.Pool) *MaskRepo {
	return &MaskRepo{pool: pool}
}

func (r *MaskRepo) Create(ctx context.Context, m *domain.Mask) error {
	query := `
		INSERT INTO masks (id, user_id, display_name, color, avatar_seed, avatar_upload_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.UserID, m.DisplayName, m.Color, m.AvatarSeed, m.AvatarUploadID, m.CreatedAt,
	)
	return mapInsertErr(err)
}

func (r *MaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Mask, error) {
	query := `
		SELECT id, user_id, display_name, color, avatar_seed, avatar_upload_id, created_at
		FROM masks
		WHERE id = $1`
	var m domain.Mask
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.UserID, &m.DisplayName, &m.Color, &m.AvatarSeed, &m.AvatarUploadID, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MaskRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Mask, error) {
	query := `
		SELECT id, user_id, display_name, color, avatar_seed, avatar_upload_id, created_at
		FROM masks
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var masks []domain.Mask
	for rows.Next() {
		var m domain.Mask
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.DisplayName, &m.Color, &m.AvatarSeed, &m.AvatarUploadID, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		masks = append(masks, m)
	}
	return masks, rows.Err()
}

func (r *MaskRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM masks WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *MaskRepo) Update(ctx context.Context, m *domain.Mask) error {
	query := `
		UPDATE masks
		SET display_name = $1, color = $2, avatar_seed = $3, avatar_upload_id = $4
		WHERE id = $5`
	_, err := r.pool.Exec(ctx, query, m.DisplayName, m.Color, m.AvatarSeed, m.AvatarUploadID, m.ID)
	return err
}

func (r *MaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM masks WHERE id = $1`, id)
	return err
}
