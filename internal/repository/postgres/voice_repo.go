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

type VoiceRepo struct {
	pool *pgxpool.Pool
}

func NewVoiceRepo(pool *pgxpool.Pool) *VoiceRepo {
	return &VoiceRepo{pool: pool}
}

const voiceSessionColumns = `id, context_type, context_id, livekit_room_name, created_by, created_at, ended_at`

func (r *VoiceRepo) scanSession(row pgx.Row) (*domain.VoiceSession, error) {
	var vs domain.VoiceSession
	err := row.Scan(&vs.ID, &vs.ContextType, &vs.ContextID, &vs.LivekitRoomName, &vs.CreatedBy, &vs.CreatedAt, &vs.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vs, nil
}

func (r *VoiceRepo) GetActiveSession(ctx context.Context, contextType string, contextID uuid.UUID) (*domain.VoiceSession, error) {
	return r.scanSession(r.pool.QueryRow(ctx, `
		SELECT `+voiceSessionColumns+`
		FROM voice_sessions
		WHERE context_type = $1 AND context_id = $2 AND ended_at IS NULL`, contextType, contextID))
}

func (r *VoiceRepo) GetSession(ctx context.Context, id uuid.UUID) (*domain.VoiceSession, error) {
	return r.scanSession(r.pool.QueryRow(ctx,
		`SELECT `+voiceSessionColumns+` FROM voice_sessions WHERE id = $1`, id))
}

func (r *VoiceRepo) CreateSession(ctx context.Context, vs *domain.VoiceSession) error {
	query := `
		INSERT INTO voice_sessions (id, context_type, context_id, livekit_room_name, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, vs.ID, vs.ContextType, vs.ContextID, vs.LivekitRoomName, vs.CreatedBy, vs.CreatedAt)
	return mapInsertErr(err)
}

func (r *VoiceRepo) EndSession(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE voice_sessions SET ended_at = $1 WHERE id = $2 AND ended_at IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const voiceParticipantColumns = `id, session_id, user_id, mask_id, joined_at, left_at, is_server_muted`

func (r *VoiceRepo) AddParticipant(ctx context.Context, p *domain.VoiceParticipant) error {
	query := `
		INSERT INTO voice_participants (` + voiceParticipantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, p.ID, p.SessionID, p.UserID, p.MaskID, p.JoinedAt, p.LeftAt, p.IsServerMuted)
	return err
}

func (r *VoiceRepo) LastParticipant(ctx context.Context, sessionID, userID, maskID uuid.UUID) (*domain.VoiceParticipant, error) {
	query := `
		SELECT ` + voiceParticipantColumns + `
		FROM voice_participants
		WHERE session_id = $1 AND user_id = $2 AND mask_id = $3
		ORDER BY joined_at DESC
		LIMIT 1`
	var p domain.VoiceParticipant
	err := r.pool.QueryRow(ctx, query, sessionID, userID, maskID).Scan(
		&p.ID, &p.SessionID, &p.UserID, &p.MaskID, &p.JoinedAt, &p.LeftAt, &p.IsServerMuted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *VoiceRepo) MarkUserLeft(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE voice_participants SET left_at = $1
		WHERE session_id = $2 AND user_id = $3 AND left_at IS NULL`, at, sessionID, userID)
	return err
}

func (r *VoiceRepo) ListActiveParticipants(ctx context.Context, sessionID uuid.UUID) ([]domain.VoiceParticipant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+voiceParticipantColumns+`
		FROM voice_participants
		WHERE session_id = $1 AND left_at IS NULL
		ORDER BY joined_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []domain.VoiceParticipant
	for rows.Next() {
		var p domain.VoiceParticipant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.MaskID, &p.JoinedAt, &p.LeftAt, &p.IsServerMuted); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *VoiceRepo) SetServerMuted(ctx context.Context, sessionID, maskID uuid.UUID, muted bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE voice_participants SET is_server_muted = $1
		WHERE session_id = $2 AND mask_id = $3 AND left_at IS NULL`, muted, sessionID, maskID)
	return err
}
