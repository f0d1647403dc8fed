package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/realtime"
	"github.com/vedran77/veil/internal/repository"
	"github.com/vedran77/veil/internal/repository/memory"
)

const testSecret = "test-secret"

type recordingNotifier struct {
	mu             sync.Mutex
	masks          []uuid.UUID
	serverRefresh  []uuid.UUID
	memberRefresh  [][2]uuid.UUID
	removedMembers [][2]uuid.UUID
}

func (n *recordingNotifier) RefreshMask(_ context.Context, mask *domain.Mask) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.masks = append(n.masks, mask.ID)
}

func (n *recordingNotifier) RefreshServerIdentities(_ context.Context, serverID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.serverRefresh = append(n.serverRefresh, serverID)
}

func (n *recordingNotifier) RefreshMemberIdentity(_ context.Context, serverID, userID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.memberRefresh = append(n.memberRefresh, [2]uuid.UUID{serverID, userID})
}

func (n *recordingNotifier) RemoveServerMember(_ context.Context, serverID, userID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removedMembers = append(n.removedMembers, [2]uuid.UUID{serverID, userID})
}

type fakeModerator struct {
	armed []uuid.UUID
	calls []string
	last  realtime.Moderation
}

func (m *fakeModerator) Mute(_ context.Context, mod realtime.Moderation, target uuid.UUID, minutes int) (*domain.RoomModeration, error) {
	m.calls = append(m.calls, fmt.Sprintf("mute:%d", minutes))
	m.last = mod
	return &domain.RoomModeration{RoomID: mod.RoomID, ActorMaskID: mod.ActorMaskID, TargetMaskID: &target, Action: domain.ModerationMute}, nil
}

func (m *fakeModerator) Exile(_ context.Context, mod realtime.Moderation, target uuid.UUID) (*domain.RoomModeration, error) {
	m.calls = append(m.calls, "exile")
	m.last = mod
	return &domain.RoomModeration{RoomID: mod.RoomID, ActorMaskID: mod.ActorMaskID, TargetMaskID: &target, Action: domain.ModerationExile}, nil
}

func (m *fakeModerator) SetLocked(_ context.Context, mod realtime.Moderation, locked bool) (*domain.RoomModeration, error) {
	action := domain.ModerationUnlock
	if locked {
		action = domain.ModerationLock
	}
	m.calls = append(m.calls, action)
	m.last = mod
	return &domain.RoomModeration{RoomID: mod.RoomID, ActorMaskID: mod.ActorMaskID, Action: action}, nil
}

func (m *fakeModerator) EnsureExpiryTimer(room *domain.Room) {
	m.armed = append(m.armed, room.ID)
}

type env struct {
	ctx   context.Context
	repos repository.Repositories

	auth    *AuthService
	masks   *MaskService
	friends *FriendService
	dms     *DMService
	rooms   *RoomService
	servers *ServerService

	notifier  *recordingNotifier
	moderator *fakeModerator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repos := memory.New().Repositories()
	e := &env{
		ctx:       context.Background(),
		repos:     repos,
		auth:      NewAuthService(repos.Users, testSecret),
		masks:     NewMaskService(repos.Masks, repos.Users, repos.Uploads),
		friends:   NewFriendService(repos.Friends, repos.Users),
		dms:       NewDMService(repos.DMs, repos.Users, repos.Friends),
		servers:   NewServerService(repos),
		notifier:  &recordingNotifier{},
		moderator: &fakeModerator{},
	}
	e.rooms = NewRoomService(repos.Rooms, repos.Masks, e.moderator)
	e.masks.SetNotifier(e.notifier)
	e.servers.SetNotifier(e.notifier)
	return e
}

var emailSeq int

// user registers a fresh account and returns it.
func (e *env) user(t *testing.T) *domain.User {
	t.Helper()
	emailSeq++
	resp, err := e.auth.Register(e.ctx, RegisterInput{
		Email:    fmt.Sprintf("user%d@example.com", emailSeq),
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	return resp.User
}

func (e *env) mask(t *testing.T, userID uuid.UUID, name string) *domain.Mask {
	t.Helper()
	m, err := e.masks.Create(e.ctx, userID, MaskInput{DisplayName: name, Color: "#112233"})
	require.NoError(t, err)
	return m
}

func (e *env) befriend(t *testing.T, a, b *domain.User) {
	t.Helper()
	_, err := e.friends.SendRequest(e.ctx, a.ID, b.FriendCode)
	require.NoError(t, err)
	incoming, err := e.friends.ListIncomingRequests(e.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	require.NoError(t, e.friends.AcceptRequest(e.ctx, b.ID, incoming[0].ID))
}
