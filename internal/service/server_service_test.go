package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/permission"
)

type serverScene struct {
	owner      *domain.User
	ownerMask  *domain.Mask
	server     *domain.Server
	general    domain.Channel
	member     *domain.User
	memberMask *domain.Mask
}

func newServerScene(t *testing.T, e *env) *serverScene {
	t.Helper()
	s := &serverScene{owner: e.user(t), member: e.user(t)}
	s.ownerMask = e.mask(t, s.owner.ID, "Owner")
	s.memberMask = e.mask(t, s.member.ID, "Member")

	var err error
	s.server, err = e.servers.Create(e.ctx, s.owner.ID, CreateServerInput{Name: " Hideout ", MaskID: s.ownerMask.ID})
	require.NoError(t, err)

	channels, err := e.servers.ListChannels(e.ctx, s.owner.ID, s.server.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	s.general = channels[0]

	invite, err := e.servers.CreateInvite(e.ctx, s.owner.ID, s.server.ID, CreateInviteInput{})
	require.NoError(t, err)
	_, err = e.servers.JoinByInvite(e.ctx, s.member.ID, invite.Code, s.memberMask.ID)
	require.NoError(t, err)
	return s
}

func TestCreateServer(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	assert.Equal(t, "Hideout", s.server.Name)
	assert.Equal(t, domain.IdentityModeServerMask, s.server.IdentityMode)
	assert.Equal(t, defaultChannelName, s.general.Name)

	details, err := e.servers.Get(e.ctx, s.owner.ID, s.server.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServerRoleOwner, details.Member.Role)
	assert.Equal(t, permission.All, details.Permissions)

	_, err = e.servers.Create(e.ctx, s.owner.ID, CreateServerInput{Name: "x", MaskID: s.ownerMask.ID, IdentityMode: "NOPE"})
	assert.ErrorIs(t, err, ErrInvalidIdentityMode)

	outsider := e.user(t)
	_, err = e.servers.Get(e.ctx, outsider.ID, s.server.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestJoinByInvite(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	members, err := e.servers.ListMembers(e.ctx, s.member.ID, s.server.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	one := 1
	invite, err := e.servers.CreateInvite(e.ctx, s.owner.ID, s.server.ID, CreateInviteInput{MaxUses: &one})
	require.NoError(t, err)

	_, err = e.servers.JoinByInvite(e.ctx, s.member.ID, invite.Code, s.memberMask.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	newcomer := e.user(t)
	nm := e.mask(t, newcomer.ID, "New")
	_, err = e.servers.JoinByInvite(e.ctx, newcomer.ID, invite.Code, nm.ID)
	require.NoError(t, err)

	late := e.user(t)
	lm := e.mask(t, late.ID, "Late")
	_, err = e.servers.JoinByInvite(e.ctx, late.ID, invite.Code, lm.ID)
	assert.ErrorIs(t, err, ErrInviteUnusable)
	assert.True(t, apperr.Is(err, apperr.KindGone))

	_, err = e.servers.JoinByInvite(e.ctx, late.ID, "NOPE", lm.ID)
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestExpiredInvite(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	past := time.Now().Add(-time.Minute)
	invite := &domain.ServerInvite{ID: uuid.New(), ServerID: s.server.ID, Code: "EXPIRED1", CreatedBy: s.owner.ID, ExpiresAt: &past, CreatedAt: past}
	require.NoError(t, e.repos.Servers.CreateInvite(e.ctx, invite))

	u := e.user(t)
	m := e.mask(t, u.ID, "Late")
	_, err := e.servers.JoinByInvite(e.ctx, u.ID, "expired1", m.ID)
	assert.ErrorIs(t, err, ErrInviteUnusable)
}

func TestPermissionsGateServerActions(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	_, err := e.servers.CreateChannel(e.ctx, s.member.ID, s.server.ID, "ops")
	assert.ErrorIs(t, err, ErrMissingPermission)
	_, err = e.servers.CreateInvite(e.ctx, s.member.ID, s.server.ID, CreateInviteInput{})
	assert.ErrorIs(t, err, ErrMissingPermission)
	_, err = e.servers.CreateRole(e.ctx, s.member.ID, s.server.ID, CreateRoleInput{Name: "mods"})
	assert.ErrorIs(t, err, ErrNotPrivileged)

	role, err := e.servers.CreateRole(e.ctx, s.owner.ID, s.server.ID, CreateRoleInput{
		Name:        "builders",
		Permissions: []string{string(permission.ManageChannels)},
	})
	require.NoError(t, err)

	_, err = e.servers.CreateRole(e.ctx, s.owner.ID, s.server.ID, CreateRoleInput{Name: "builders"})
	assert.ErrorIs(t, err, ErrRoleNameTaken)
	_, err = e.servers.CreateRole(e.ctx, s.owner.ID, s.server.ID, CreateRoleInput{Name: "bad", Permissions: []string{"FLY"}})
	assert.ErrorIs(t, err, ErrInvalidPermission)

	_, err = e.servers.AssignRoles(e.ctx, s.owner.ID, s.server.ID, s.member.ID, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrRoleNotFound)

	member, err := e.servers.AssignRoles(e.ctx, s.owner.ID, s.server.ID, s.member.ID, []uuid.UUID{role.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{role.ID}, member.RoleIDs)

	channel, err := e.servers.CreateChannel(e.ctx, s.member.ID, s.server.ID, " ops ")
	require.NoError(t, err)
	assert.Equal(t, "ops", channel.Name)
}

func TestIdentityChangesNotifyLiveSessions(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	_, err := e.servers.UpdateIdentityMode(e.ctx, s.member.ID, s.server.ID, domain.IdentityModeChannelMask)
	assert.ErrorIs(t, err, ErrNotPrivileged)

	server, err := e.servers.UpdateIdentityMode(e.ctx, s.owner.ID, s.server.ID, domain.IdentityModeChannelMask)
	require.NoError(t, err)
	assert.Equal(t, domain.IdentityModeChannelMask, server.IdentityMode)
	assert.Equal(t, []uuid.UUID{s.server.ID}, e.notifier.serverRefresh)

	alt := e.mask(t, s.member.ID, "Alt")
	ident, err := e.servers.SetChannelIdentity(e.ctx, s.member.ID, s.general.ID, alt.ID)
	require.NoError(t, err)
	assert.Equal(t, alt.ID, ident.MaskID)

	member, err := e.servers.SetServerMask(e.ctx, s.member.ID, s.server.ID, alt.ID)
	require.NoError(t, err)
	assert.Equal(t, alt.ID, member.ServerMaskID)

	want := [2]uuid.UUID{s.server.ID, s.member.ID}
	assert.Equal(t, [][2]uuid.UUID{want, want}, e.notifier.memberRefresh)

	_, err = e.servers.SetServerMask(e.ctx, s.member.ID, s.server.ID, s.ownerMask.ID)
	assert.ErrorIs(t, err, ErrMaskNotOwned)
}

func TestKick(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	assert.ErrorIs(t, e.servers.Kick(e.ctx, s.owner.ID, s.server.ID, s.owner.ID), ErrCannotKickSelf)
	assert.ErrorIs(t, e.servers.Kick(e.ctx, s.member.ID, s.server.ID, s.owner.ID), ErrMissingPermission)

	require.NoError(t, e.servers.Kick(e.ctx, s.owner.ID, s.server.ID, s.member.ID))
	assert.Equal(t, [][2]uuid.UUID{{s.server.ID, s.member.ID}}, e.notifier.removedMembers)

	_, err := e.servers.ListChannels(e.ctx, s.member.ID, s.server.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	assert.ErrorIs(t, e.servers.Kick(e.ctx, s.owner.ID, s.server.ID, s.member.ID), ErrMemberNotFound)
}

func TestAdminCannotKickOwner(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	member, err := e.repos.Servers.GetMember(e.ctx, s.server.ID, s.member.ID)
	require.NoError(t, err)
	member.Role = domain.ServerRoleAdmin
	require.NoError(t, e.repos.Servers.UpdateMember(e.ctx, member))

	assert.ErrorIs(t, e.servers.Kick(e.ctx, s.member.ID, s.server.ID, s.owner.ID), ErrCannotKickOwner)
}

func TestChannelHistory(t *testing.T) {
	e := newEnv(t)
	s := newServerScene(t, e)

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, e.repos.Channels.CreateMessage(e.ctx, &domain.ServerMessage{
			ID:        uuid.New(),
			ChannelID: s.general.ID,
			UserID:    s.owner.ID,
			MaskID:    s.ownerMask.ID,
			Body:      "hello",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, err := e.servers.ChannelHistory(e.ctx, s.member.ID, s.general.ID, nil, 2)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Messages, 2)

	outsider := e.user(t)
	_, err = e.servers.ChannelHistory(e.ctx, outsider.ID, s.general.ID, nil, 2)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = e.servers.ChannelHistory(e.ctx, s.member.ID, uuid.New(), nil, 2)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}
