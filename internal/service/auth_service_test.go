package service

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/veil/internal/apperr"
)

func TestRegisterIssuesTokenAndFriendCode(t *testing.T) {
	e := newEnv(t)

	resp, err := e.auth.Register(e.ctx, RegisterInput{Email: "  Alice@Example.com ", Password: "correct-horse-battery"})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Len(t, resp.User.FriendCode, friendCodeLength)
	assert.NotEqual(t, "correct-horse-battery", resp.User.PasswordHash)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), sub)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.Register(e.ctx, RegisterInput{Email: "bob@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)

	_, err = e.auth.Register(e.ctx, RegisterInput{Email: "BOB@example.com", Password: "another-password"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.Register(e.ctx, RegisterInput{Email: "carol@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)

	resp, err := e.auth.Login(e.ctx, LoginInput{Email: "Carol@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = e.auth.Login(e.ctx, LoginInput{Email: "carol@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)

	_, err = e.auth.Login(e.ctx, LoginInput{Email: "nobody@example.com", Password: "correct-horse-battery"})
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("s3cret-value")
	require.NoError(t, err)

	assert.True(t, verifyPassword("s3cret-value", hash))
	assert.False(t, verifyPassword("s3cret-valuE", hash))
	assert.False(t, verifyPassword("s3cret-value", "not-a-hash"))
}

func TestGenerateCodeAlphabet(t *testing.T) {
	code, err := generateCode(64)
	require.NoError(t, err)
	require.Len(t, code, 64)
	for _, r := range code {
		assert.Contains(t, codeAlphabet, string(r))
	}
}
