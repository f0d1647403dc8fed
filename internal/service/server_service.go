package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/permission"
	"github.com/vedran77/veil/internal/repository"
)

const (
	inviteCodeLength   = 10
	defaultChannelName = "general"
)

var (
	ErrServerNotFound      = apperr.NotFound("Server")
	ErrChannelNotFound     = apperr.NotFound("Channel")
	ErrRoleNotFound        = apperr.NotFound("Role")
	ErrInviteNotFound      = apperr.NotFound("Invite")
	ErrMemberNotFound      = apperr.NotFound("Server member")
	ErrNotMember           = apperr.Forbidden("you are not a member of this server")
	ErrNotPrivileged       = apperr.Forbidden("only the owner or an admin can do this")
	ErrMissingPermission   = apperr.Forbidden("you do not have permission to do this")
	ErrCannotKickOwner     = apperr.Forbidden("the server owner cannot be kicked")
	ErrCannotKickSelf      = apperr.Validation("you cannot kick yourself")
	ErrInvalidIdentityMode = apperr.Validation("identity mode must be SERVER_MASK or CHANNEL_MASK")
	ErrInvalidPermission   = apperr.Validation("unknown permission")
	ErrRoleNameTaken       = apperr.Conflict("a role with this name already exists")
	ErrAlreadyMember       = apperr.Conflict("you are already a member of this server")
	ErrInviteUnusable      = apperr.Gone("invite has expired or reached its use limit")
)

type ServerService struct {
	repos    repository.Repositories
	resolver *permission.Resolver
	notifier Notifier
}

func NewServerService(repos repository.Repositories) *ServerService {
	return &ServerService{
		repos:    repos,
		resolver: permission.NewResolver(repos.Servers, repos.Channels),
	}
}

func (s *ServerService) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateServerInput struct {
	Name         string    `json:"name"`
	MaskID       uuid.UUID `json:"mask_id"`
	IdentityMode string    `json:"identity_mode"`
}

type ServerDetails struct {
	Server      *domain.Server          `json:"server"`
	Member      *domain.ServerMember    `json:"member"`
	Permissions []permission.Permission `json:"permissions"`
	Channels    []domain.Channel        `json:"channels"`
}

// Create makes a server owned by userID with one text channel.
func (s *ServerService) Create(ctx context.Context, userID uuid.UUID, input CreateServerInput) (*domain.Server, error) {
	mode := input.IdentityMode
	if mode == "" {
		mode = domain.IdentityModeServerMask
	}
	if !validIdentityMode(mode) {
		return nil, ErrInvalidIdentityMode
	}
	if _, err := ownedMask(ctx, s.repos.Masks, userID, input.MaskID); err != nil {
		return nil, err
	}

	now := time.Now()
	server := &domain.Server{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		OwnerID:      userID,
		IdentityMode: mode,
		CreatedAt:    now,
	}
	if err := s.repos.Servers.Create(ctx, server); err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	if err := s.repos.Servers.AddMember(ctx, &domain.ServerMember{
		ServerID:     server.ID,
		UserID:       userID,
		Role:         domain.ServerRoleOwner,
		ServerMaskID: input.MaskID,
		RoleIDs:      []uuid.UUID{},
		JoinedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("adding owner: %w", err)
	}

	if err := s.repos.Channels.Create(ctx, &domain.Channel{
		ID:        uuid.New(),
		ServerID:  server.ID,
		Name:      defaultChannelName,
		Type:      domain.ChannelTypeText,
		CreatedBy: userID,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("creating default channel: %w", err)
	}

	return server, nil
}

func (s *ServerService) List(ctx context.Context, userID uuid.UUID) ([]domain.Server, error) {
	servers, err := s.repos.Servers.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if servers == nil {
		servers = []domain.Server{}
	}
	return servers, nil
}

func (s *ServerService) Get(ctx context.Context, userID, serverID uuid.UUID) (*ServerDetails, error) {
	server, member, err := s.membership(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	perms, err := s.resolver.Permissions(ctx, member)
	if err != nil {
		return nil, err
	}
	channels, err := s.repos.Channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	return &ServerDetails{Server: server, Member: member, Permissions: perms.List(), Channels: channels}, nil
}

// UpdateIdentityMode switches how members present themselves in channels
// and re-resolves every live channel identity in the server.
func (s *ServerService) UpdateIdentityMode(ctx context.Context, userID, serverID uuid.UUID, mode string) (*domain.Server, error) {
	if !validIdentityMode(mode) {
		return nil, ErrInvalidIdentityMode
	}
	server, member, err := s.membership(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsPrivileged() {
		return nil, ErrNotPrivileged
	}

	if err := s.repos.Servers.UpdateIdentityMode(ctx, serverID, mode); err != nil {
		return nil, fmt.Errorf("updating identity mode: %w", err)
	}
	server.IdentityMode = mode

	if s.notifier != nil {
		s.notifier.RefreshServerIdentities(ctx, serverID)
	}
	return server, nil
}

func (s *ServerService) ListMembers(ctx context.Context, userID, serverID uuid.UUID) ([]domain.ServerMember, error) {
	if _, _, err := s.membership(ctx, serverID, userID); err != nil {
		return nil, err
	}
	members, err := s.repos.Servers.ListMembers(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []domain.ServerMember{}
	}
	return members, nil
}

// SetServerMask changes the mask the caller presents server-wide.
func (s *ServerService) SetServerMask(ctx context.Context, userID, serverID, maskID uuid.UUID) (*domain.ServerMember, error) {
	_, member, err := s.membership(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := ownedMask(ctx, s.repos.Masks, userID, maskID); err != nil {
		return nil, err
	}

	member.ServerMaskID = maskID
	if err := s.repos.Servers.UpdateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("updating member: %w", err)
	}

	if s.notifier != nil {
		s.notifier.RefreshMemberIdentity(ctx, serverID, userID)
	}
	return member, nil
}

// SetChannelIdentity stores the caller's per-channel mask override. It only
// takes effect while the server is in CHANNEL_MASK mode.
func (s *ServerService) SetChannelIdentity(ctx context.Context, userID, channelID, maskID uuid.UUID) (*domain.ChannelMemberIdentity, error) {
	channel, err := s.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.membership(ctx, channel.ServerID, userID); err != nil {
		return nil, err
	}
	if _, err := ownedMask(ctx, s.repos.Masks, userID, maskID); err != nil {
		return nil, err
	}

	ident := &domain.ChannelMemberIdentity{
		ChannelID: channelID,
		UserID:    userID,
		MaskID:    maskID,
		UpdatedAt: time.Now(),
	}
	if err := s.repos.Channels.SetIdentity(ctx, ident); err != nil {
		return nil, fmt.Errorf("setting channel identity: %w", err)
	}

	if s.notifier != nil {
		s.notifier.RefreshMemberIdentity(ctx, channel.ServerID, userID)
	}
	return ident, nil
}

func (s *ServerService) CreateChannel(ctx context.Context, userID, serverID uuid.UUID, name string) (*domain.Channel, error) {
	if err := s.require(ctx, serverID, userID, permission.ManageChannels); err != nil {
		return nil, err
	}

	channel := &domain.Channel{
		ID:        uuid.New(),
		ServerID:  serverID,
		Name:      strings.TrimSpace(name),
		Type:      domain.ChannelTypeText,
		CreatedBy: userID,
		CreatedAt: time.Now(),
	}
	if err := s.repos.Channels.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("creating channel: %w", err)
	}
	return channel, nil
}

func (s *ServerService) ListChannels(ctx context.Context, userID, serverID uuid.UUID) ([]domain.Channel, error) {
	if _, _, err := s.membership(ctx, serverID, userID); err != nil {
		return nil, err
	}
	channels, err := s.repos.Channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	return channels, nil
}

type ChannelMessageListResponse struct {
	Messages []domain.ServerMessage `json:"messages"`
	HasMore  bool                   `json:"has_more"`
}

// ChannelHistory returns one page of channel messages older than before.
func (s *ServerService) ChannelHistory(ctx context.Context, userID, channelID uuid.UUID, before *uuid.UUID, limit int) (*ChannelMessageListResponse, error) {
	channel, err := s.channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.membership(ctx, channel.ServerID, userID); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	messages, err := s.repos.Channels.ListMessages(ctx, channelID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}
	if messages == nil {
		messages = []domain.ServerMessage{}
	}
	return &ChannelMessageListResponse{Messages: messages, HasMore: hasMore}, nil
}

type CreateRoleInput struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (s *ServerService) CreateRole(ctx context.Context, userID, serverID uuid.UUID, input CreateRoleInput) (*domain.ServerRole, error) {
	_, member, err := s.membership(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsPrivileged() {
		return nil, ErrNotPrivileged
	}
	for _, p := range input.Permissions {
		if !permission.Valid(p) {
			return nil, ErrInvalidPermission
		}
	}

	perms := input.Permissions
	if perms == nil {
		perms = []string{}
	}
	role := &domain.ServerRole{
		ID:          uuid.New(),
		ServerID:    serverID,
		Name:        strings.TrimSpace(input.Name),
		Permissions: perms,
		CreatedAt:   time.Now(),
	}
	if err := s.repos.Servers.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleNameTaken
		}
		return nil, fmt.Errorf("creating role: %w", err)
	}
	return role, nil
}

func (s *ServerService) ListRoles(ctx context.Context, userID, serverID uuid.UUID) ([]domain.ServerRole, error) {
	if _, _, err := s.membership(ctx, serverID, userID); err != nil {
		return nil, err
	}
	roles, err := s.repos.Servers.ListRoles(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []domain.ServerRole{}
	}
	return roles, nil
}

// AssignRoles replaces the target member's role set.
func (s *ServerService) AssignRoles(ctx context.Context, userID, serverID, targetUserID uuid.UUID, roleIDs []uuid.UUID) (*domain.ServerMember, error) {
	_, member, err := s.membership(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsPrivileged() {
		return nil, ErrNotPrivileged
	}

	target, err := s.repos.Servers.GetMember(ctx, serverID, targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}

	roles, err := s.repos.Servers.ListRoles(ctx, serverID)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{}, len(roles))
	for _, r := range roles {
		known[r.ID] = struct{}{}
	}
	assigned := make([]uuid.UUID, 0, len(roleIDs))
	for _, id := range roleIDs {
		if _, ok := known[id]; !ok {
			return nil, ErrRoleNotFound
		}
		assigned = append(assigned, id)
	}

	target.RoleIDs = assigned
	if err := s.repos.Servers.UpdateMember(ctx, target); err != nil {
		return nil, fmt.Errorf("updating member roles: %w", err)
	}
	return target, nil
}

type CreateInviteInput struct {
	MaxUses    *int `json:"max_uses"`
	TTLMinutes int  `json:"ttl_minutes"`
}

func (s *ServerService) CreateInvite(ctx context.Context, userID, serverID uuid.UUID, input CreateInviteInput) (*domain.ServerInvite, error) {
	if err := s.require(ctx, serverID, userID, permission.CreateInvites); err != nil {
		return nil, err
	}
	if input.MaxUses != nil && *input.MaxUses <= 0 {
		return nil, apperr.Validation("max_uses must be positive")
	}

	now := time.Now()
	invite := &domain.ServerInvite{
		ID:        uuid.New(),
		ServerID:  serverID,
		CreatedBy: userID,
		MaxUses:   input.MaxUses,
		CreatedAt: now,
	}
	if input.TTLMinutes > 0 {
		expires := now.Add(time.Duration(input.TTLMinutes) * time.Minute)
		invite.ExpiresAt = &expires
	}

	for range codeAttempts {
		code, err := generateCode(inviteCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generating invite code: %w", err)
		}
		invite.Code = code
		err = s.repos.Servers.CreateInvite(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("creating invite: %w", err)
		}
	}
	return nil, ErrCodeExhausted
}

// JoinByInvite adds the caller to the invite's server presenting maskID.
func (s *ServerService) JoinByInvite(ctx context.Context, userID uuid.UUID, code string, maskID uuid.UUID) (*domain.ServerMember, error) {
	invite, err := s.repos.Servers.GetInviteByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, ErrInviteNotFound
	}
	if !invite.Usable(time.Now()) {
		return nil, ErrInviteUnusable
	}

	existing, err := s.repos.Servers.GetMember(ctx, invite.ServerID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}
	if _, err := ownedMask(ctx, s.repos.Masks, userID, maskID); err != nil {
		return nil, err
	}

	member := &domain.ServerMember{
		ServerID:     invite.ServerID,
		UserID:       userID,
		Role:         domain.ServerRoleMember,
		ServerMaskID: maskID,
		RoleIDs:      []uuid.UUID{},
		JoinedAt:     time.Now(),
	}
	if err := s.repos.Servers.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}
	if err := s.repos.Servers.IncrementInviteUses(ctx, invite.ID); err != nil {
		return nil, fmt.Errorf("counting invite use: %w", err)
	}
	return member, nil
}

// Kick removes a member and drops their live channel presence.
func (s *ServerService) Kick(ctx context.Context, userID, serverID, targetUserID uuid.UUID) error {
	if userID == targetUserID {
		return ErrCannotKickSelf
	}
	server, err := s.server(ctx, serverID)
	if err != nil {
		return err
	}
	if err := s.require(ctx, serverID, userID, permission.ManageMembers); err != nil {
		return err
	}
	if targetUserID == server.OwnerID {
		return ErrCannotKickOwner
	}

	target, err := s.repos.Servers.GetMember(ctx, serverID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}

	if err := s.repos.Servers.RemoveMember(ctx, serverID, targetUserID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}

	if s.notifier != nil {
		s.notifier.RemoveServerMember(ctx, serverID, targetUserID)
	}
	return nil
}

func (s *ServerService) server(ctx context.Context, serverID uuid.UUID) (*domain.Server, error) {
	server, err := s.repos.Servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	return server, nil
}

func (s *ServerService) channel(ctx context.Context, channelID uuid.UUID) (*domain.Channel, error) {
	channel, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}
	return channel, nil
}

// membership loads the server and the caller's membership in it.
func (s *ServerService) membership(ctx context.Context, serverID, userID uuid.UUID) (*domain.Server, *domain.ServerMember, error) {
	server, err := s.server(ctx, serverID)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.repos.Servers.GetMember(ctx, serverID, userID)
	if err != nil {
		return nil, nil, err
	}
	if member == nil {
		return nil, nil, ErrNotMember
	}
	return server, member, nil
}

func (s *ServerService) require(ctx context.Context, serverID, userID uuid.UUID, p permission.Permission) error {
	_, member, err := s.membership(ctx, serverID, userID)
	if err != nil {
		return err
	}
	ok, err := s.resolver.Can(ctx, member, p)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingPermission
	}
	return nil
}

func validIdentityMode(mode string) bool {
	return mode == domain.IdentityModeServerMask || mode == domain.IdentityModeChannelMask
}
