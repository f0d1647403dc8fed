package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/domain"
)

type FriendRepo struct {
	pool *pgxpool.Pool
}

func NewFriendRepo(pool *pgxpool.Pool) *FriendRepo {
	return &FriendRepo{pool: pool}
}

func (r *FriendRepo) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, receiver_id, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, req.ID, req.SenderID, req.ReceiverID, req.CreatedAt)
	return mapInsertErr(err)
}

const friendRequestSelect = `
	SELECT r.id, r.sender_id, r.receiver_id, r.created_at, u.friend_code
	FROM friend_requests r
	JOIN users u ON r.sender_id = u.id`

func (r *FriendRepo) scanRequest(row pgx.Row) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt, &req.SenderFriendCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *FriendRepo) GetRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.FriendRequest, error) {
	return r.scanRequest(r.pool.QueryRow(ctx,
		friendRequestSelect+` WHERE r.sender_id = $1 AND r.receiver_id = $2`, senderID, receiverID))
}

func (r *FriendRepo) GetRequestByID(ctx context.Context, id uuid.UUID) (*domain.FriendRequest, error) {
	return r.scanRequest(r.pool.QueryRow(ctx, friendRequestSelect+` WHERE r.id = $1`, id))
}

func (r *FriendRepo) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	return err
}

func (r *FriendRepo) ListIncoming(ctx context.Context, userID uuid.UUID) ([]domain.FriendRequest, error) {
	rows, err := r.pool.Query(ctx,
		friendRequestSelect+` WHERE r.receiver_id = $1 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.FriendRequest
	for rows.Next() {
		var req domain.FriendRequest
		if err := rows.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt, &req.SenderFriendCode); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (r *FriendRepo) CreateFriendship(ctx context.Context, f *domain.Friendship) error {
	a, b := domain.CanonicalPair(f.UserAID, f.UserBID)
	query := `
		INSERT INTO friendships (user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, query, a, b, f.CreatedAt)
	return mapInsertErr(err)
}

func (r *FriendRepo) AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	a, b := domain.CanonicalPair(userA, userB)
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user_a_id = $1 AND user_b_id = $2)`, a, b,
	).Scan(&exists)
	return exists, err
}

func (r *FriendRepo) DeleteFriendship(ctx context.Context, userA, userB uuid.UUID) error {
	a, b := domain.CanonicalPair(userA, userB)
	_, err := r.pool.Exec(ctx, `DELETE FROM friendships WHERE user_a_id = $1 AND user_b_id = $2`, a, b)
	return err
}

func (r *FriendRepo) ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.friend_code, u.default_mask_id, u.created_at
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user_a_id = $1 THEN f.user_b_id ELSE f.user_a_id END
		WHERE f.user_a_id = $1 OR f.user_b_id = $1
		ORDER BY u.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FriendCode, &u.DefaultMaskID, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
