package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/domain"
)

type DMRepo struct {
	pool *pgxpool.Pool
}

func NewDMRepo(pool *pgxpool.Pool) *DMRepo {
	return &DMRepo{pool: pool}
}

func (r *DMRepo) CreateThread(ctx context.Context, t *domain.DmThread) error {
	query := `
		INSERT INTO dm_threads (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, t.ID, t.UserAID, t.UserBID, t.CreatedAt)
	return mapInsertErr(err)
}

func (r *DMRepo) GetThreadByUsers(ctx context.Context, userAID, userBID uuid.UUID) (*domain.DmThread, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM dm_threads
		WHERE user_a_id = $1 AND user_b_id = $2`
	return r.scanThread(r.pool.QueryRow(ctx, query, userAID, userBID))
}

func (r *DMRepo) GetThreadByID(ctx context.Context, id uuid.UUID) (*domain.DmThread, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM dm_threads
		WHERE id = $1`
	return r.scanThread(r.pool.QueryRow(ctx, query, id))
}

func (r *DMRepo) scanThread(row pgx.Row) (*domain.DmThread, error) {
	var t domain.DmThread
	err := row.Scan(&t.ID, &t.UserAID, &t.UserBID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *DMRepo) ListThreads(ctx context.Context, userID uuid.UUID) ([]domain.DmThread, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM dm_threads
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []domain.DmThread
	for rows.Next() {
		var t domain.DmThread
		if err := rows.Scan(&t.ID, &t.UserAID, &t.UserBID, &t.CreatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (r *DMRepo) UpsertParticipant(ctx context.Context, p *domain.DmParticipant) error {
	query := `
		INSERT INTO dm_participants (thread_id, user_id, mask_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (thread_id, user_id) DO UPDATE
		SET mask_id = EXCLUDED.mask_id, updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query, p.ThreadID, p.UserID, p.MaskID, p.UpdatedAt)
	return err
}

func (r *DMRepo) ListParticipants(ctx context.Context, threadID uuid.UUID) ([]domain.DmParticipant, error) {
	query := `
		SELECT thread_id, user_id, mask_id, updated_at
		FROM dm_participants
		WHERE thread_id = $1
		ORDER BY updated_at`

	rows, err := r.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []domain.DmParticipant
	for rows.Next() {
		var p domain.DmParticipant
		if err := rows.Scan(&p.ThreadID, &p.UserID, &p.MaskID, &p.UpdatedAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *DMRepo) CreateMessage(ctx context.Context, msg *domain.DmMessage) error {
	query := `
		INSERT INTO dm_messages (id, thread_id, sender_id, mask_id, body, image_upload_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ThreadID, msg.SenderID, msg.MaskID, msg.Body, msg.ImageUploadID, msg.CreatedAt,
	)
	return err
}

func (r *DMRepo) ListMessages(ctx context.Context, threadID uuid.UUID, before *uuid.UUID, limit int) ([]domain.DmMessage, error) {
	var query string
	var args []any

	if before != nil {
		query = fmt.Sprintf(`
			SELECT m.id, m.thread_id, m.sender_id, m.mask_id, m.body, m.image_upload_id, m.created_at,
				k.display_name, k.color, k.avatar_seed
			FROM dm_messages m
			JOIN masks k ON m.mask_id = k.id
			WHERE m.thread_id = $1
				AND m.created_at < (SELECT created_at FROM dm_messages WHERE id = $2)
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{threadID, *before}
	} else {
		query = fmt.Sprintf(`
			SELECT m.id, m.thread_id, m.sender_id, m.mask_id, m.body, m.image_upload_id, m.created_at,
				k.display_name, k.color, k.avatar_seed
			FROM dm_messages m
			JOIN masks k ON m.mask_id = k.id
			WHERE m.thread_id = $1
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{threadID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.DmMessage
	for rows.Next() {
		var msg domain.DmMessage
		if err := rows.Scan(
			&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.MaskID, &msg.Body, &msg.ImageUploadID, &msg.CreatedAt,
			&msg.Author.DisplayName, &msg.Author.Color, &msg.Author.AvatarSeed,
		); err != nil {
			return nil, err
		}
		msg.Author.MaskID = msg.MaskID
		messages = append(messages, msg)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}
