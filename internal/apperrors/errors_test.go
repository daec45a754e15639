package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{Unauthorized("Unauthorized"), http.StatusUnauthorized},
		{Validation("name is required"), http.StatusBadRequest},
		{NotFound("Crate not found"), http.StatusNotFound},
		{Conflict("Crate name already exists"), http.StatusConflict},
		{ErrRateLimited, http.StatusTooManyRequests},
		{Upstream("Spotify request failed: 502"), http.StatusInternalServerError},
		{Configuration("missing key"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("Crate not found")), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Internal("failed to create crate", errors.New("connection reset"))

	assert.Equal(t, "failed to create crate", Message(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "Unknown error", Message(errors.New("plain")))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("suggest: %w", NotFound("Crate not found"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestWithCauseKeepsCodeAndMessage(t *testing.T) {
	cause := errors.New("timeout")
	err := Upstream("Spotify request failed").WithCause(cause)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Spotify request failed", Message(err))
	assert.Equal(t, "Spotify request failed: timeout", err.Error())
}
