package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/veil/internal/domain"
)

type ServerRepo struct {
	pool *pgxpool.Pool
}

func NewServerRepo(pool *pgxpool.Pool) *ServerRepo {
	return &ServerRepo{pool: pool}
}

func (r *ServerRepo) Create(ctx context.Context, s *domain.Server) error {
	query := `
		INSERT INTO servers (id, name, owner_id, identity_mode, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, s.ID, s.Name, s.OwnerID, s.IdentityMode, s.CreatedAt)
	return err
}

func (r *ServerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Server, error) {
	query := `
		SELECT id, name, owner_id, identity_mode, created_at
		FROM servers
		WHERE id = $1`
	var s domain.Server
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.OwnerID, &s.IdentityMode, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServerRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Server, error) {
	query := `
		SELECT s.id, s.name, s.owner_id, s.identity_mode, s.created_at
		FROM servers s
		JOIN server_members m ON m.server_id = s.id
		WHERE m.user_id = $1
		ORDER BY s.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []domain.Server
	for rows.Next() {
		var s domain.Server
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerID, &s.IdentityMode, &s.CreatedAt); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

func (r *ServerRepo) UpdateIdentityMode(ctx context.Context, id uuid.UUID, mode string) error {
	_, err := r.pool.Exec(ctx, `UPDATE servers SET identity_mode = $1 WHERE id = $2`, mode, id)
	return err
}

func (r *ServerRepo) AddMember(ctx context.Context, m *domain.ServerMember) error {
	query := `
		INSERT INTO server_members (server_id, user_id, role, server_mask_id, role_ids, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, m.ServerID, m.UserID, m.Role, m.ServerMaskID, m.RoleIDs, m.JoinedAt)
	return mapInsertErr(err)
}

const memberColumns = `server_id, user_id, role, server_mask_id, role_ids, joined_at`

func (r *ServerRepo) GetMember(ctx context.Context, serverID, userID uuid.UUID) (*domain.ServerMember, error) {
	var m domain.ServerMember
	err := r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM server_members WHERE server_id = $1 AND user_id = $2`, serverID, userID,
	).Scan(&m.ServerID, &m.UserID, &m.Role, &m.ServerMaskID, &m.RoleIDs, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ServerRepo) ListMembers(ctx context.Context, serverID uuid.UUID) ([]domain.ServerMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM server_members WHERE server_id = $1 ORDER BY joined_at`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.ServerMember
	for rows.Next() {
		var m domain.ServerMember
		if err := rows.Scan(&m.ServerID, &m.UserID, &m.Role, &m.ServerMaskID, &m.RoleIDs, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *ServerRepo) UpdateMember(ctx context.Context, m *domain.ServerMember) error {
	query := `
		UPDATE server_members
		SET role = $1, server_mask_id = $2, role_ids = $3
		WHERE server_id = $4 AND user_id = $5`
	_, err := r.pool.Exec(ctx, query, m.Role, m.ServerMaskID, m.RoleIDs, m.ServerID, m.UserID)
	return err
}

func (r *ServerRepo) RemoveMember(ctx context.Context, serverID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM server_members WHERE server_id = $1 AND user_id = $2`, serverID, userID)
	return err
}

func (r *ServerRepo) CreateRole(ctx context.Context, role *domain.ServerRole) error {
	query := `
		INSERT INTO server_roles (id, server_id, name, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, role.ID, role.ServerID, role.Name, role.Permissions, role.CreatedAt)
	return mapInsertErr(err)
}

func (r *ServerRepo) ListRoles(ctx context.Context, serverID uuid.UUID) ([]domain.ServerRole, error) {
	query := `
		SELECT id, server_id, name, permissions, created_at
		FROM server_roles
		WHERE server_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.ServerRole
	for rows.Next() {
		var role domain.ServerRole
		if err := rows.Scan(&role.ID, &role.ServerID, &role.Name, &role.Permissions, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *ServerRepo) CreateInvite(ctx context.Context, inv *domain.ServerInvite) error {
	query := `
		INSERT INTO server_invites (id, server_id, code, created_by, max_uses, uses, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		inv.ID, inv.ServerID, inv.Code, inv.CreatedBy, inv.MaxUses, inv.Uses, inv.ExpiresAt, inv.CreatedAt,
	)
	return mapInsertErr(err)
}

func (r *ServerRepo) GetInviteByCode(ctx context.Context, code string) (*domain.ServerInvite, error) {
	query := `
		SELECT id, server_id, code, created_by, max_uses, uses, expires_at, created_at
		FROM server_invites
		WHERE code = $1`
	var inv domain.ServerInvite
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&inv.ID, &inv.ServerID, &inv.Code, &inv.CreatedBy, &inv.MaxUses, &inv.Uses, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *ServerRepo) IncrementInviteUses(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE server_invites SET uses = uses + 1 WHERE id = $1`, id)
	return err
}
