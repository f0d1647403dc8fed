package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
	"github.com/vedran77/veil/internal/repository"
	"github.com/vedran77/veil/internal/repository/memory"
)

type fakeSFU struct {
	mu        sync.Mutex
	grants    []Grant
	deleted   []string
	updates   map[string]Permission
	listErr   error
	updateErr error
	deleteErr error
}

func newFakeSFU() *fakeSFU {
	return &fakeSFU{updates: make(map[string]Permission)}
}

func (f *fakeSFU) DeleteRoom(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, room)
	return f.deleteErr
}

// ListParticipants reports one live participant per issued grant.
func (f *fakeSFU) ListParticipants(_ context.Context, room string) ([]Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Participant
	for _, g := range f.grants {
		if g.Room == room {
			out = append(out, Participant{Identity: g.Identity, Metadata: g.Metadata})
		}
	}
	return out, nil
}

func (f *fakeSFU) UpdateParticipant(_ context.Context, _, identity string, perm Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[identity] = perm
	return nil
}

func (f *fakeSFU) IssueToken(g Grant) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, g)
	return "token-" + g.Identity, nil
}

func (f *fakeSFU) lastGrant(t *testing.T) Grant {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.grants)
	return f.grants[len(f.grants)-1]
}

type voiceFixture struct {
	ctx    context.Context
	repos  repository.Repositories
	sfu    *fakeSFU
	broker *Broker
}

func newVoiceFixture(t *testing.T) *voiceFixture {
	t.Helper()
	repos := memory.New().Repositories()
	sfu := newFakeSFU()
	b := NewBroker(repos, sfu, Config{URL: "wss://sfu.test", TokenTTL: time.Hour},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &voiceFixture{ctx: context.Background(), repos: repos, sfu: sfu, broker: b}
}

func (f *voiceFixture) mask(t *testing.T, userID uuid.UUID, name string) *domain.Mask {
	t.Helper()
	m := &domain.Mask{ID: uuid.New(), UserID: userID, DisplayName: name, Color: "#000000", AvatarSeed: name, CreatedAt: time.Now()}
	require.NoError(t, f.repos.Masks.Create(f.ctx, m))
	return m
}

func (f *voiceFixture) createRoom(t *testing.T, host, member *domain.Mask, expiresAt *time.Time) *domain.Room {
	t.Helper()
	r := &domain.Room{ID: uuid.New(), Title: "r", CreatedBy: host.UserID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	require.NoError(t, f.repos.Rooms.Create(f.ctx, r))
	for _, m := range []struct {
		mask *domain.Mask
		role string
	}{{host, domain.RoomRoleHost}, {member, domain.RoomRoleMember}} {
		require.NoError(t, f.repos.Rooms.AddMember(f.ctx, &domain.RoomMembership{
			ID: uuid.New(), RoomID: r.ID, MaskID: m.mask.ID, Role: m.role, JoinedAt: time.Now(),
		}))
	}
	return r
}

type roomCall struct {
	*voiceFixture
	room                 *domain.Room
	hostUser, memberUser uuid.UUID
	hostMask, memberMask *domain.Mask
}

func newRoomCall(t *testing.T) *roomCall {
	f := newVoiceFixture(t)
	rc := &roomCall{voiceFixture: f, hostUser: uuid.New(), memberUser: uuid.New()}
	rc.hostMask = f.mask(t, rc.hostUser, "Owl")
	rc.memberMask = f.mask(t, rc.memberUser, "Fox")
	rc.room = f.createRoom(t, rc.hostMask, rc.memberMask, nil)
	return rc
}

func (rc *roomCall) connect(t *testing.T, user uuid.UUID, mask *domain.Mask) *Connection {
	t.Helper()
	conn, err := rc.broker.Connect(rc.ctx, user, domain.VoiceContextRoom, rc.room.ID, mask.ID)
	require.NoError(t, err)
	return conn
}

func TestEnsureActiveSessionReusesLiveSession(t *testing.T) {
	f := newVoiceFixture(t)
	ctxID := uuid.New()

	first, err := f.broker.EnsureActiveSession(f.ctx, domain.VoiceContextDMThread, ctxID, uuid.New())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.LivekitRoomName, "veil-"))

	second, err := f.broker.EnsureActiveSession(f.ctx, domain.VoiceContextDMThread, ctxID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = f.broker.EnsureActiveSession(f.ctx, "PARTY_LINE", ctxID, uuid.New())
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestConnectIssuesTokenWithMetadata(t *testing.T) {
	rc := newRoomCall(t)

	conn := rc.connect(t, rc.memberUser, rc.memberMask)
	assert.Equal(t, "wss://sfu.test", conn.URL)
	assert.Equal(t, rc.memberMask.ID, conn.Participant.MaskID)

	g := rc.sfu.lastGrant(t)
	assert.Equal(t, conn.Session.LivekitRoomName, g.Room)
	assert.True(t, strings.HasPrefix(g.Identity, rc.memberUser.String()+":"+rc.memberMask.ID.String()+":"))
	assert.Equal(t, Permission{CanPublish: true, CanSubscribe: true, CanPublishData: true}, g.Permission)
	assert.Equal(t, time.Hour, g.TTL)

	var meta metadata
	require.NoError(t, json.Unmarshal([]byte(g.Metadata), &meta))
	assert.Equal(t, rc.memberMask.ID, meta.MaskID)
	assert.Equal(t, "Fox", meta.DisplayName)
	assert.Equal(t, domain.VoiceContextRoom, meta.ContextType)
	assert.Equal(t, rc.room.ID, meta.ContextID)
}

func TestConnectAuthorization(t *testing.T) {
	rc := newRoomCall(t)
	stranger := uuid.New()
	strangerMask := rc.mask(t, stranger, "Nobody")

	_, err := rc.broker.Connect(rc.ctx, stranger, domain.VoiceContextRoom, rc.room.ID, strangerMask.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = rc.broker.Connect(rc.ctx, stranger, domain.VoiceContextRoom, rc.room.ID, rc.memberMask.ID)
	assert.ErrorIs(t, err, ErrMaskNotOwned)

	past := time.Now().Add(-time.Minute)
	expired := rc.createRoom(t, rc.hostMask, rc.memberMask, &past)
	_, err = rc.broker.Connect(rc.ctx, rc.memberUser, domain.VoiceContextRoom, expired.ID, rc.memberMask.ID)
	assert.ErrorIs(t, err, ErrRoomExpired)

	alice, bob := uuid.New(), uuid.New()
	ua, ub := domain.CanonicalPair(alice, bob)
	thread := &domain.DmThread{ID: uuid.New(), UserAID: ua, UserBID: ub, CreatedAt: time.Now()}
	require.NoError(t, rc.repos.DMs.CreateThread(rc.ctx, thread))
	_, err = rc.broker.Connect(rc.ctx, stranger, domain.VoiceContextDMThread, thread.ID, strangerMask.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestConnectChannelUsesEffectiveMask(t *testing.T) {
	f := newVoiceFixture(t)
	user := uuid.New()
	serverMask, channelMask := f.mask(t, user, "Public"), f.mask(t, user, "Private")

	srv := &domain.Server{ID: uuid.New(), Name: "s", OwnerID: user, IdentityMode: domain.IdentityModeChannelMask, CreatedAt: time.Now()}
	require.NoError(t, f.repos.Servers.Create(f.ctx, srv))
	require.NoError(t, f.repos.Servers.AddMember(f.ctx, &domain.ServerMember{
		ServerID: srv.ID, UserID: user, Role: domain.ServerRoleOwner, ServerMaskID: serverMask.ID, JoinedAt: time.Now(),
	}))
	ch := &domain.Channel{ID: uuid.New(), ServerID: srv.ID, Name: "voice", Type: domain.ChannelTypeText, CreatedBy: user, CreatedAt: time.Now()}
	require.NoError(t, f.repos.Channels.Create(f.ctx, ch))
	require.NoError(t, f.repos.Channels.SetIdentity(f.ctx, &domain.ChannelMemberIdentity{
		ChannelID: ch.ID, UserID: user, MaskID: channelMask.ID, UpdatedAt: time.Now(),
	}))

	conn, err := f.broker.Connect(f.ctx, user, domain.VoiceContextServerChannel, ch.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, channelMask.ID, conn.Participant.MaskID)

	_, err = f.broker.Connect(f.ctx, uuid.New(), domain.VoiceContextServerChannel, ch.ID, uuid.Nil)
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestMuteCarriesOverRejoin(t *testing.T) {
	rc := newRoomCall(t)
	rc.connect(t, rc.hostUser, rc.hostMask)
	conn := rc.connect(t, rc.memberUser, rc.memberMask)
	memberIdentity := rc.sfu.lastGrant(t).Identity

	require.NoError(t, rc.broker.Mute(rc.ctx, conn.Session.ID, rc.hostUser, rc.memberMask.ID))
	assert.Equal(t, Permission{CanPublish: false, CanSubscribe: true, CanPublishData: true}, rc.sfu.updates[memberIdentity])
	assert.Len(t, rc.sfu.updates, 1, "only the target is touched")

	rejoin := rc.connect(t, rc.memberUser, rc.memberMask)
	assert.True(t, rejoin.Participant.IsServerMuted)
	assert.False(t, rc.sfu.lastGrant(t).Permission.CanPublish)

	other := rc.mask(t, rc.memberUser, "Badger")
	require.NoError(t, rc.repos.Rooms.AddMember(rc.ctx, &domain.RoomMembership{
		ID: uuid.New(), RoomID: rc.room.ID, MaskID: other.ID, Role: domain.RoomRoleMember, JoinedAt: time.Now(),
	}))
	fresh := rc.connect(t, rc.memberUser, other)
	assert.False(t, fresh.Participant.IsServerMuted, "mute is bound to the mask")
	assert.True(t, rc.sfu.lastGrant(t).Permission.CanPublish)
}

func TestMuteAuthorization(t *testing.T) {
	rc := newRoomCall(t)
	conn := rc.connect(t, rc.memberUser, rc.memberMask)

	err := rc.broker.Mute(rc.ctx, conn.Session.ID, rc.memberUser, rc.hostMask.ID)
	assert.ErrorIs(t, err, ErrNotModerator)

	err = rc.broker.Mute(rc.ctx, conn.Session.ID, rc.hostUser, rc.hostMask.ID)
	assert.ErrorIs(t, err, ErrSelfMute)

	err = rc.broker.Mute(rc.ctx, uuid.New(), rc.hostUser, rc.memberMask.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	dm, err := rc.broker.EnsureActiveSession(rc.ctx, domain.VoiceContextDMThread, uuid.New(), rc.hostUser)
	require.NoError(t, err)
	err = rc.broker.Mute(rc.ctx, dm.ID, rc.hostUser, rc.memberMask.ID)
	assert.ErrorIs(t, err, ErrDMNotModeratable)
}

func TestMuteSFUFailureIsUpstream(t *testing.T) {
	rc := newRoomCall(t)
	conn := rc.connect(t, rc.memberUser, rc.memberMask)
	rc.sfu.updateErr = errors.New("sfu down")

	err := rc.broker.Mute(rc.ctx, conn.Session.ID, rc.hostUser, rc.memberMask.ID)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	last, err := rc.repos.Voice.LastParticipant(rc.ctx, conn.Session.ID, rc.memberUser, rc.memberMask.ID)
	require.NoError(t, err)
	assert.False(t, last.IsServerMuted, "nothing persisted when the SFU refused")
}

func TestLastLeaveEndsSessionOnce(t *testing.T) {
	rc := newRoomCall(t)
	hostConn := rc.connect(t, rc.hostUser, rc.hostMask)
	rc.connect(t, rc.memberUser, rc.memberMask)
	sessionID := hostConn.Session.ID

	require.NoError(t, rc.broker.Leave(rc.ctx, sessionID, rc.hostUser))
	session, err := rc.repos.Voice.GetSession(rc.ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, session.EndedAt)

	rc.sfu.deleteErr = errors.New("already gone")
	require.NoError(t, rc.broker.Leave(rc.ctx, sessionID, rc.memberUser), "sfu cleanup is best effort")
	session, err = rc.repos.Voice.GetSession(rc.ctx, sessionID)
	require.NoError(t, err)
	assert.NotNil(t, session.EndedAt)
	assert.Equal(t, []string{session.LivekitRoomName}, rc.sfu.deleted)

	require.NoError(t, rc.broker.End(rc.ctx, sessionID, rc.hostUser))
	assert.Len(t, rc.sfu.deleted, 1)

	next := rc.connect(t, rc.memberUser, rc.memberMask)
	assert.NotEqual(t, sessionID, next.Session.ID, "a new session replaces the ended one")
}

func TestEndAuthorization(t *testing.T) {
	rc := newRoomCall(t)
	conn := rc.connect(t, rc.memberUser, rc.memberMask)

	assert.ErrorIs(t, rc.broker.End(rc.ctx, conn.Session.ID, rc.memberUser), ErrNotModerator)
	require.NoError(t, rc.broker.End(rc.ctx, conn.Session.ID, rc.hostUser))

	alice, bob := uuid.New(), uuid.New()
	ua, ub := domain.CanonicalPair(alice, bob)
	thread := &domain.DmThread{ID: uuid.New(), UserAID: ua, UserBID: ub, CreatedAt: time.Now()}
	require.NoError(t, rc.repos.DMs.CreateThread(rc.ctx, thread))
	dm, err := rc.broker.EnsureActiveSession(rc.ctx, domain.VoiceContextDMThread, thread.ID, alice)
	require.NoError(t, err)

	assert.ErrorIs(t, rc.broker.End(rc.ctx, dm.ID, uuid.New()), ErrNotModerator)
	assert.NoError(t, rc.broker.End(rc.ctx, dm.ID, bob), "either participant may end a call")
}

func TestEndForContext(t *testing.T) {
	rc := newRoomCall(t)
	conn := rc.connect(t, rc.memberUser, rc.memberMask)

	require.NoError(t, rc.broker.EndForContext(rc.ctx, domain.VoiceContextRoom, rc.room.ID))
	session, err := rc.repos.Voice.GetSession(rc.ctx, conn.Session.ID)
	require.NoError(t, err)
	assert.NotNil(t, session.EndedAt)

	assert.NoError(t, rc.broker.EndForContext(rc.ctx, domain.VoiceContextRoom, rc.room.ID))
	assert.Len(t, rc.sfu.deleted, 1)
}
