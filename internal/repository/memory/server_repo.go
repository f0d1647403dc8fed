package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type ServerRepo struct {
	s *Store
}

func (r *ServerRepo) Create(_ context.Context, server *domain.Server) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.servers[server.ID] = *server
	return nil
}

func (r *ServerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Server, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	srv, ok := r.s.servers[id]
	if !ok {
		return nil, nil
	}
	return &srv, nil
}

func (r *ServerRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Server, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var servers []domain.Server
	for key := range r.s.serverMembers {
		if key.b != userID {
			continue
		}
		if srv, ok := r.s.servers[key.a]; ok {
			servers = append(servers, srv)
		}
	}
	slices.SortFunc(servers, func(a, b domain.Server) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return servers, nil
}

func (r *ServerRepo) UpdateIdentityMode(_ context.Context, id uuid.UUID, mode string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if srv, ok := r.s.servers[id]; ok {
		srv.IdentityMode = mode
		r.s.servers[id] = srv
	}
	return nil
}

func cloneMember(m domain.ServerMember) domain.ServerMember {
	m.RoleIDs = slices.Clone(m.RoleIDs)
	return m
}

func (r *ServerRepo) AddMember(_ context.Context, m *domain.ServerMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{m.ServerID, m.UserID}
	if _, ok := r.s.serverMembers[key]; ok {
		return repository.ErrDuplicate
	}
	r.s.serverMembers[key] = cloneMember(*m)
	return nil
}

func (r *ServerRepo) GetMember(_ context.Context, serverID, userID uuid.UUID) (*domain.ServerMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.serverMembers[pairKey{serverID, userID}]
	if !ok {
		return nil, nil
	}
	m = cloneMember(m)
	return &m, nil
}

func (r *ServerRepo) ListMembers(_ context.Context, serverID uuid.UUID) ([]domain.ServerMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var members []domain.ServerMember
	for key, m := range r.s.serverMembers {
		if key.a == serverID {
			members = append(members, cloneMember(m))
		}
	}
	slices.SortFunc(members, func(a, b domain.ServerMember) int { return a.JoinedAt.Compare(b.JoinedAt) })
	return members, nil
}

func (r *ServerRepo) UpdateMember(_ context.Context, m *domain.ServerMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{m.ServerID, m.UserID}
	if _, ok := r.s.serverMembers[key]; ok {
		r.s.serverMembers[key] = cloneMember(*m)
	}
	return nil
}

func (r *ServerRepo) RemoveMember(_ context.Context, serverID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.serverMembers, pairKey{serverID, userID})
	return nil
}

func (r *ServerRepo) CreateRole(_ context.Context, role *domain.ServerRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.roles {
		if existing.ServerID == role.ServerID && existing.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	stored := *role
	stored.Permissions = slices.Clone(role.Permissions)
	r.s.roles[role.ID] = stored
	return nil
}

func (r *ServerRepo) ListRoles(_ context.Context, serverID uuid.UUID) ([]domain.ServerRole, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var roles []domain.ServerRole
	for _, role := range r.s.roles {
		if role.ServerID == serverID {
			role.Permissions = slices.Clone(role.Permissions)
			roles = append(roles, role)
		}
	}
	slices.SortFunc(roles, func(a, b domain.ServerRole) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return roles, nil
}

func (r *ServerRepo) CreateInvite(_ context.Context, invite *domain.ServerInvite) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.invites {
		if existing.Code == invite.Code {
			return repository.ErrDuplicate
		}
	}
	r.s.invites[invite.ID] = *invite
	return nil
}

func (r *ServerRepo) GetInviteByCode(_ context.Context, code string) (*domain.ServerInvite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, inv := range r.s.invites {
		if inv.Code == code {
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *ServerRepo) IncrementInviteUses(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if inv, ok := r.s.invites[id]; ok {
		inv.Uses++
		r.s.invites[id] = inv
	}
	return nil
}
