package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestFlow(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t), e.user(t)

	req, err := e.friends.SendRequest(e.ctx, alice.ID, strings.ToLower(bob.FriendCode))
	require.NoError(t, err)
	require.NotNil(t, req)

	_, err = e.friends.SendRequest(e.ctx, alice.ID, bob.FriendCode)
	assert.ErrorIs(t, err, ErrRequestAlreadyExists)

	err = e.friends.AcceptRequest(e.ctx, alice.ID, req.ID)
	assert.ErrorIs(t, err, ErrNotRequestReceiver)

	require.NoError(t, e.friends.AcceptRequest(e.ctx, bob.ID, req.ID))

	friends, err := e.friends.ListFriends(e.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].ID)

	_, err = e.friends.SendRequest(e.ctx, bob.ID, alice.FriendCode)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestReverseRequestAutoAccepts(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t), e.user(t)

	_, err := e.friends.SendRequest(e.ctx, alice.ID, bob.FriendCode)
	require.NoError(t, err)

	req, err := e.friends.SendRequest(e.ctx, bob.ID, alice.FriendCode)
	require.NoError(t, err)
	assert.Nil(t, req)

	friends, err := e.friends.ListFriends(e.ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, friends, 1)

	incoming, err := e.friends.ListIncomingRequests(e.ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestFriendRequestRejections(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t), e.user(t)

	_, err := e.friends.SendRequest(e.ctx, alice.ID, alice.FriendCode)
	assert.ErrorIs(t, err, ErrCannotRequestSelf)

	_, err = e.friends.SendRequest(e.ctx, alice.ID, "NOSUCHCD")
	assert.ErrorIs(t, err, ErrFriendCodeNotFound)

	req, err := e.friends.SendRequest(e.ctx, alice.ID, bob.FriendCode)
	require.NoError(t, err)

	assert.ErrorIs(t, e.friends.CancelRequest(e.ctx, bob.ID, req.ID), ErrNotRequestSender)
	require.NoError(t, e.friends.RejectRequest(e.ctx, bob.ID, req.ID))
	assert.ErrorIs(t, e.friends.RejectRequest(e.ctx, bob.ID, req.ID), ErrRequestNotFound)
}

func TestRemoveFriend(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t), e.user(t)
	e.befriend(t, alice, bob)

	require.NoError(t, e.friends.RemoveFriend(e.ctx, bob.ID, alice.ID))

	friends, err := e.friends.ListFriends(e.ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
}
