package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "deadline", in: context.DeadlineExceeded, want: ErrTransient},
		{name: "not found", in: errors.New("video does not exist"), want: ErrNotFound},
		{name: "auth", in: errors.New("401 Unauthorized"), want: ErrPermissionDenied},
		{name: "quota", in: errors.New("quota exceeded for model"), want: ErrTransient},
		{name: "connection", in: errors.New("dial tcp: connection refused"), want: ErrTransient},
		{name: "json", in: errors.New("invalid JSON in reply"), want: ErrInvalidModelOutput},
		{name: "locked", in: errors.New("data dir is locked by another instance"), want: ErrConflict},
		{name: "other", in: errors.New("boom"), want: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, MapError(tt.in), tt.want)
		})
	}
}

func TestMapError_KeepsCategorized(t *testing.T) {
	in := NotFound("transcript")
	assert.Equal(t, in, MapError(in))
	assert.Nil(t, MapError(nil))
	assert.ErrorIs(t, MapError(context.Canceled), context.Canceled)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("x")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("wrapped: %w", NotFound("x"))))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Transient("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}

func TestWrapWithCategory(t *testing.T) {
	err := WrapWithCategory(errors.New("gemini: 500"), "provider request failed", ErrInternal)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "gemini: 500")
	assert.True(t, IsRetryable(Transient("busy")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.Equal(t, "ErrInvalidModelOutput", Category(InvalidModelOutput("bad")))
}
