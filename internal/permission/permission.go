// Package permission computes what a server member may do and which mask they
// present in a channel.
package permission

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
)

type Permission string

const (
	ManageChannels Permission = "MANAGE_CHANNELS"
	ManageMembers  Permission = "MANAGE_MEMBERS"
	CreateInvites  Permission = "CREATE_INVITES"
	ModerateChat   Permission = "MODERATE_CHAT"
)

// All is the complete vocabulary, in a stable order.
var All = []Permission{ManageChannels, ManageMembers, CreateInvites, ModerateChat}

// Valid reports whether name is part of the vocabulary.
func Valid(name string) bool {
	return slices.Contains(All, Permission(name))
}

// Set is an effective permission set.
type Set map[Permission]struct{}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the set in vocabulary order.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for _, p := range All {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Effective returns the member's permissions. Owners and admins hold every
// permission; everyone else gets the union of their assigned roles. Role ids
// that no longer exist and names outside the vocabulary are ignored.
func Effective(member *domain.ServerMember, roles []domain.ServerRole) Set {
	set := make(Set, len(All))
	if member == nil {
		return set
	}
	if member.IsPrivileged() {
		for _, p := range All {
			set[p] = struct{}{}
		}
		return set
	}
	for _, role := range roles {
		if role.ServerID != member.ServerID || !slices.Contains(member.RoleIDs, role.ID) {
			continue
		}
		for _, name := range role.Permissions {
			if Valid(name) {
				set[Permission(name)] = struct{}{}
			}
		}
	}
	return set
}

// Resolver answers permission and identity questions against the repositories.
type Resolver struct {
	servers  repository.ServerRepository
	channels repository.ChannelRepository
}

func NewResolver(servers repository.ServerRepository, channels repository.ChannelRepository) *Resolver {
	return &Resolver{servers: servers, channels: channels}
}

// Permissions loads the server's roles and returns member's effective set.
func (r *Resolver) Permissions(ctx context.Context, member *domain.ServerMember) (Set, error) {
	if member.IsPrivileged() {
		return Effective(member, nil), nil
	}
	roles, err := r.servers.ListRoles(ctx, member.ServerID)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	return Effective(member, roles), nil
}

// Can reports whether member holds p.
func (r *Resolver) Can(ctx context.Context, member *domain.ServerMember, p Permission) (bool, error) {
	set, err := r.Permissions(ctx, member)
	if err != nil {
		return false, err
	}
	return set.Has(p), nil
}

// EffectiveChannelMask returns the mask member presents in channelID. In
// SERVER_MASK mode that is always the server mask; in CHANNEL_MASK mode a
// per-channel override wins when one exists.
func (r *Resolver) EffectiveChannelMask(ctx context.Context, server *domain.Server, channelID uuid.UUID, member *domain.ServerMember) (uuid.UUID, error) {
	if server.IdentityMode != domain.IdentityModeChannelMask {
		return member.ServerMaskID, nil
	}
	ident, err := r.channels.GetIdentity(ctx, channelID, member.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading channel identity: %w", err)
	}
	if ident == nil {
		return member.ServerMaskID, nil
	}
	return ident.MaskID, nil
}
