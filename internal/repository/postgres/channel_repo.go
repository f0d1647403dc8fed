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

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	query := `
		INSERT INTO channels (id, server_id, name, type, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, ch.ID, ch.ServerID, ch.Name, ch.Type, ch.CreatedBy, ch.CreatedAt)
	return mapInsertErr(err)
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	query := `
		SELECT id, server_id, name, type, created_by, created_at
		FROM channels
		WHERE id = $1`
	var ch domain.Channel
	err := r.pool.QueryRow(ctx, query, id).Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.Type, &ch.CreatedBy, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepo) ListByServer(ctx context.Context, serverID uuid.UUID) ([]domain.Channel, error) {
	query := `
		SELECT id, server_id, name, type, created_by, created_at
		FROM channels
		WHERE server_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Name, &ch.Type, &ch.CreatedBy, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *ChannelRepo) SetIdentity(ctx context.Context, ident *domain.ChannelMemberIdentity) error {
	query := `
		INSERT INTO channel_member_identities (channel_id, user_id, mask_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, user_id) DO UPDATE
		SET mask_id = EXCLUDED.mask_id, updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query, ident.ChannelID, ident.UserID, ident.MaskID, ident.UpdatedAt)
	return err
}

func (r *ChannelRepo) GetIdentity(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMemberIdentity, error) {
	query := `
		SELECT channel_id, user_id, mask_id, updated_at
		FROM channel_member_identities
		WHERE channel_id = $1 AND user_id = $2`
	var ident domain.ChannelMemberIdentity
	err := r.pool.QueryRow(ctx, query, channelID, userID).Scan(
		&ident.ChannelID, &ident.UserID, &ident.MaskID, &ident.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

func (r *ChannelRepo) CreateMessage(ctx context.Context, msg *domain.ServerMessage) error {
	query := `
		INSERT INTO server_messages (id, channel_id, user_id, mask_id, body, image_upload_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChannelID, msg.UserID, msg.MaskID, msg.Body, msg.ImageUploadID, msg.CreatedAt,
	)
	return err
}

func (r *ChannelRepo) ListMessages(ctx context.Context, channelID uuid.UUID, before *uuid.UUID, limit int) ([]domain.ServerMessage, error) {
	var query string
	var args []any

	if before != nil {
		query = fmt.Sprintf(`
			SELECT m.id, m.channel_id, m.user_id, m.mask_id, m.body, m.image_upload_id, m.created_at,
				k.display_name, k.color, k.avatar_seed
			FROM server_messages m
			JOIN masks k ON m.mask_id = k.id
			WHERE m.channel_id = $1
				AND m.created_at < (SELECT created_at FROM server_messages WHERE id = $2)
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{channelID, *before}
	} else {
		query = fmt.Sprintf(`
			SELECT m.id, m.channel_id, m.user_id, m.mask_id, m.body, m.image_upload_id, m.created_at,
				k.display_name, k.color, k.avatar_seed
			FROM server_messages m
			JOIN masks k ON m.mask_id = k.id
			WHERE m.channel_id = $1
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{channelID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ServerMessage
	for rows.Next() {
		var msg domain.ServerMessage
		if err := rows.Scan(
			&msg.ID, &msg.ChannelID, &msg.UserID, &msg.MaskID, &msg.Body, &msg.ImageUploadID, &msg.CreatedAt,
			&msg.Author.DisplayName, &msg.Author.Color, &msg.Author.AvatarSeed,
		); err != nil {
			return nil, err
		}
		msg.Author.MaskID = msg.MaskID
		messages = append(messages, msg)
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}
