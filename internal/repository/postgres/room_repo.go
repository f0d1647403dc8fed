package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/domain"
)

type RoomRepo struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

const roomColumns = `id, title, created_by, locked, fog_level, message_decay_minutes, expires_at, created_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	err := row.Scan(
		&room.ID, &room.Title, &room.CreatedBy, &room.Locked,
		&room.FogLevel, &room.MessageDecayMinutes, &room.ExpiresAt, &room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepo) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (` + roomColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		room.ID, room.Title, room.CreatedBy, room.Locked,
		room.FogLevel, room.MessageDecayMinutes, room.ExpiresAt, room.CreatedAt,
	)
	return err
}

func (r *RoomRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return room, err
}

func (r *RoomRepo) SetLocked(ctx context.Context, id uuid.UUID, locked bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE rooms SET locked = $1 WHERE id = $2`, locked, id)
	return err
}

func (r *RoomRepo) ListExpiring(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE expires_at IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

func (r *RoomRepo) AddMember(ctx context.Context, m *domain.RoomMembership) error {
	query := `
		INSERT INTO room_memberships (id, room_id, mask_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, m.ID, m.RoomID, m.MaskID, m.Role, m.JoinedAt)
	return mapInsertErr(err)
}

func (r *RoomRepo) GetMember(ctx context.Context, roomID, maskID uuid.UUID) (*domain.RoomMembership, error) {
	query := `
		SELECT id, room_id, mask_id, role, joined_at
		FROM room_memberships
		WHERE room_id = $1 AND mask_id = $2`
	var m domain.RoomMembership
	err := r.pool.QueryRow(ctx, query, roomID, maskID).Scan(&m.ID, &m.RoomID, &m.MaskID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *RoomRepo) RemoveMember(ctx context.Context, roomID, maskID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM room_memberships WHERE room_id = $1 AND mask_id = $2`, roomID, maskID)
	return err
}

func (r *RoomRepo) CreateModeration(ctx context.Context, mod *domain.RoomModeration) error {
	query := `
		INSERT INTO room_moderations (id, room_id, actor_mask_id, target_mask_id, action, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		mod.ID, mod.RoomID, mod.ActorMaskID, mod.TargetMaskID, mod.Action, mod.ExpiresAt, mod.CreatedAt,
	)
	return err
}

const moderationColumns = `id, room_id, actor_mask_id, target_mask_id, action, expires_at, created_at`

func (r *RoomRepo) ActiveMute(ctx context.Context, roomID, maskID uuid.UUID, now time.Time) (*domain.RoomModeration, error) {
	query := `
		SELECT ` + moderationColumns + `
		FROM room_moderations
		WHERE room_id = $1 AND target_mask_id = $2 AND action = 'MUTE' AND expires_at > $3
		ORDER BY expires_at DESC
		LIMIT 1`
	var mod domain.RoomModeration
	err := r.pool.QueryRow(ctx, query, roomID, maskID, now).Scan(
		&mod.ID, &mod.RoomID, &mod.ActorMaskID, &mod.TargetMaskID, &mod.Action, &mod.ExpiresAt, &mod.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mod, nil
}

func (r *RoomRepo) ListActiveMutes(ctx context.Context, roomID uuid.UUID, now time.Time) ([]domain.RoomModeration, error) {
	query := `
		SELECT ` + moderationColumns + `
		FROM room_moderations
		WHERE room_id = $1 AND action = 'MUTE' AND expires_at > $2
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, roomID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []domain.RoomModeration
	for rows.Next() {
		var mod domain.RoomModeration
		if err := rows.Scan(
			&mod.ID, &mod.RoomID, &mod.ActorMaskID, &mod.TargetMaskID, &mod.Action, &mod.ExpiresAt, &mod.CreatedAt,
		); err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, rows.Err()
}

func (r *RoomRepo) HasExile(ctx context.Context, roomID, maskID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM room_moderations
			WHERE room_id = $1 AND target_mask_id = $2 AND action = 'EXILE'
		)`, roomID, maskID,
	).Scan(&exists)
	return exists, err
}

func (r *RoomRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, room_id, mask_id, body, image_upload_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, msg.ID, msg.RoomID, msg.MaskID, msg.Body, msg.ImageUploadID, msg.CreatedAt)
	return err
}

func (r *RoomRepo) ListMessagesSince(ctx context.Context, roomID uuid.UUID, since *time.Time) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.room_id, m.mask_id, m.body, m.image_upload_id, m.created_at,
			k.display_name, k.color, k.avatar_seed
		FROM messages m
		JOIN masks k ON m.mask_id = k.id
		WHERE m.room_id = $1 AND ($2::timestamptz IS NULL OR m.created_at >= $2)
		ORDER BY m.created_at`

	rows, err := r.pool.Query(ctx, query, roomID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.RoomID, &msg.MaskID, &msg.Body, &msg.ImageUploadID, &msg.CreatedAt,
			&msg.Author.DisplayName, &msg.Author.Color, &msg.Author.AvatarSeed,
		); err != nil {
			return nil, err
		}
		msg.Author.MaskID = msg.MaskID
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
