package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/apperr"
	"github.com/vedran77/veil/internal/domain"
)

func newThread(t *testing.T, f *fixture, a, b uuid.UUID) *domain.DmThread {
	t.Helper()
	ua, ub := domain.CanonicalPair(a, b)
	thread := &domain.DmThread{ID: uuid.New(), UserAID: ua, UserBID: ub, CreatedAt: f.clock.Now()}
	require.NoError(t, f.repos.DMs.CreateThread(f.ctx, thread))
	return thread
}

func TestDMJoinAndMessage(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	aliceMask, bobMask := f.mask(t, alice, "Moth"), f.mask(t, bob, "Crow")
	thread := newThread(t, f, alice, bob)

	as, aSock := f.connect(alice)
	require.NoError(t, f.hub.JoinDM(f.ctx, as, thread.ID, aliceMask.ID))
	state := decode[DMStatePayload](t, aSock.last(t, EventDMState))
	assert.Equal(t, []uuid.UUID{alice}, state.Online)
	require.Len(t, state.Participants, 1)
	assert.Equal(t, aliceMask.ID, state.Participants[0].Member.MaskID)

	bs, bSock := f.connect(bob)
	require.NoError(t, f.hub.JoinDM(f.ctx, bs, thread.ID, bobMask.ID))
	state = decode[DMStatePayload](t, aSock.last(t, EventDMState))
	assert.Len(t, state.Online, 2, "alice sees bob come online")
	assert.Len(t, state.Participants, 2)

	require.NoError(t, f.hub.SendDMMessage(f.ctx, bs, Outgoing{ContextID: thread.ID, MaskID: bobMask.ID, Body: "hey"}))
	for _, sock := range []*fakeSocket{aSock, bSock} {
		msg := decode[DMMessagePayload](t, sock.last(t, EventNewDMMessage))
		assert.Equal(t, "hey", msg.Body)
		assert.Equal(t, bob, msg.SenderID)
	}

	f.hub.Disconnect(f.ctx, bs)
	state = decode[DMStatePayload](t, aSock.last(t, EventDMState))
	assert.Equal(t, []uuid.UUID{alice}, state.Online)
}

func TestDMMaskSwitchRefreshesPeer(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	aliceMask, bobMask := f.mask(t, alice, "Moth"), f.mask(t, bob, "Crow")
	bobAlt := f.mask(t, bob, "Raven")
	thread := newThread(t, f, alice, bob)

	as, aSock := f.connect(alice)
	require.NoError(t, f.hub.JoinDM(f.ctx, as, thread.ID, aliceMask.ID))
	bs, _ := f.connect(bob)
	require.NoError(t, f.hub.JoinDM(f.ctx, bs, thread.ID, bobMask.ID))
	aSock.reset()

	require.NoError(t, f.hub.JoinDM(f.ctx, bs, thread.ID, bobAlt.ID))
	state := decode[DMStatePayload](t, aSock.last(t, EventDMState))
	var bobView DMParticipantView
	for _, p := range state.Participants {
		if p.UserID == bob {
			bobView = p
		}
	}
	assert.Equal(t, "Raven", bobView.Member.DisplayName)

	err := f.hub.SendDMMessage(f.ctx, bs, Outgoing{ContextID: thread.ID, MaskID: bobMask.ID, Body: "old mask"})
	assert.ErrorIs(t, err, ErrNotJoined)
}

func TestDMThirdPartyForbidden(t *testing.T) {
	f := newFixture(t)
	alice, bob, eve := uuid.New(), uuid.New(), uuid.New()
	thread := newThread(t, f, alice, bob)
	eveMask := f.mask(t, eve, "Snake")

	es, _ := f.connect(eve)
	err := f.hub.JoinDM(f.ctx, es, thread.ID, eveMask.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	err = f.hub.SendDMMessage(f.ctx, es, Outgoing{ContextID: thread.ID, MaskID: eveMask.ID, Body: "hi"})
	assert.ErrorIs(t, err, ErrNotJoined)

	err = f.hub.JoinDM(f.ctx, es, uuid.New(), eveMask.ID)
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestSendDMMessageRateLimit(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	aliceMask := f.mask(t, alice, "Moth")
	thread := newThread(t, f, alice, bob)

	as, _ := f.connect(alice)
	require.NoError(t, f.hub.JoinDM(f.ctx, as, thread.ID, aliceMask.ID))
	say := func(body string) error {
		return f.hub.SendDMMessage(f.ctx, as, Outgoing{ContextID: thread.ID, MaskID: aliceMask.ID, Body: body})
	}

	for i := range DirectRateLimit {
		require.NoError(t, say("ping"), "message %d", i)
	}
	assert.True(t, apperr.Is(say("ping"), apperr.KindRateLimited))

	f.clock.Advance(RateWindow)
	assert.NoError(t, say("again"))
}
