package permission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository/memory"
)

func TestEffective(t *testing.T) {
	serverID := uuid.New()
	moderators := domain.ServerRole{
		ID:          uuid.New(),
		ServerID:    serverID,
		Name:        "mods",
		Permissions: []string{"MODERATE_CHAT", "BAN_EVERYONE"},
	}
	inviters := domain.ServerRole{
		ID:          uuid.New(),
		ServerID:    serverID,
		Name:        "inviters",
		Permissions: []string{"CREATE_INVITES"},
	}
	roles := []domain.ServerRole{moderators, inviters}

	tests := []struct {
		name   string
		member domain.ServerMember
		want   []Permission
	}{
		{
			name:   "owner has everything",
			member: domain.ServerMember{ServerID: serverID, Role: domain.ServerRoleOwner},
			want:   All,
		},
		{
			name:   "admin has everything regardless of roles",
			member: domain.ServerMember{ServerID: serverID, Role: domain.ServerRoleAdmin, RoleIDs: []uuid.UUID{inviters.ID}},
			want:   All,
		},
		{
			name:   "member with no roles",
			member: domain.ServerMember{ServerID: serverID, Role: domain.ServerRoleMember},
			want:   []Permission{},
		},
		{
			name: "union of assigned roles, unknown names dropped",
			member: domain.ServerMember{
				ServerID: serverID,
				Role:     domain.ServerRoleMember,
				RoleIDs:  []uuid.UUID{moderators.ID, inviters.ID},
			},
			want: []Permission{CreateInvites, ModerateChat},
		},
		{
			name: "stale role id ignored",
			member: domain.ServerMember{
				ServerID: serverID,
				Role:     domain.ServerRoleMember,
				RoleIDs:  []uuid.UUID{uuid.New(), inviters.ID},
			},
			want: []Permission{CreateInvites},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Effective(&tt.member, roles)
			assert.Equal(t, tt.want, got.List())
		})
	}
}

func TestEffectiveChannelMask(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	resolver := NewResolver(repos.Servers, repos.Channels)

	userID := uuid.New()
	serverMask := uuid.New()
	channelMask := uuid.New()
	channelID := uuid.New()
	otherChannel := uuid.New()
	member := &domain.ServerMember{ServerID: uuid.New(), UserID: userID, ServerMaskID: serverMask}

	require.NoError(t, repos.Channels.SetIdentity(ctx, &domain.ChannelMemberIdentity{
		ChannelID: channelID, UserID: userID, MaskID: channelMask, UpdatedAt: time.Now(),
	}))

	serverMode := &domain.Server{IdentityMode: domain.IdentityModeServerMask}
	channelMode := &domain.Server{IdentityMode: domain.IdentityModeChannelMask}

	got, err := resolver.EffectiveChannelMask(ctx, serverMode, channelID, member)
	require.NoError(t, err)
	assert.Equal(t, serverMask, got, "server mode ignores overrides")

	got, err = resolver.EffectiveChannelMask(ctx, channelMode, channelID, member)
	require.NoError(t, err)
	assert.Equal(t, channelMask, got)

	got, err = resolver.EffectiveChannelMask(ctx, channelMode, otherChannel, member)
	require.NoError(t, err)
	assert.Equal(t, serverMask, got, "falls back to the server mask")
}

func TestResolverCan(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	resolver := NewResolver(repos.Servers, repos.Channels)

	serverID := uuid.New()
	role := &domain.ServerRole{ID: uuid.New(), ServerID: serverID, Name: "builders", Permissions: []string{"MANAGE_CHANNELS"}}
	require.NoError(t, repos.Servers.CreateRole(ctx, role))

	member := &domain.ServerMember{ServerID: serverID, Role: domain.ServerRoleMember, RoleIDs: []uuid.UUID{role.ID}}

	ok, err := resolver.Can(ctx, member, ManageChannels)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.Can(ctx, member, ManageMembers)
	require.NoError(t, err)
	assert.False(t, ok)
}
