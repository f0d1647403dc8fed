package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NotFound("Room"), http.StatusNotFound},
		{Forbidden("no"), http.StatusForbidden},
		{Conflict("dup"), http.StatusConflict},
		{Gone("expired"), http.StatusGone},
		{Locked("locked"), http.StatusLocked},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Validation("bad"), http.StatusBadRequest},
		{Upstream("sfu", errors.New("boom")), http.StatusBadGateway},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err.Kind))
		})
	}
}

func TestFrom(t *testing.T) {
	sentinel := NotFound("Room")
	wrapped := fmt.Errorf("loading room: %w", sentinel)

	got := From(wrapped)
	assert.Same(t, sentinel, got)

	plain := From(errors.New("db down"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "an unexpected error occurred", plain.Message)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := Conflict("failed to generate unique code")
	cause := errors.New("duplicate key")

	err := sentinel.Wrap(cause)
	require.True(t, errors.Is(err, sentinel))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindConflict, err.Kind)
	assert.True(t, Is(err, KindConflict))
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Mask not found", NotFound("Mask").Message)
}
