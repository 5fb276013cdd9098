package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextIDs(t *testing.T) {
	ctx := WithSessionID(WithTraceID(context.Background(), "trace-1"), "sess-1")
	assert.Equal(t, "trace-1", GetTraceID(ctx))
	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Equal(t, "", GetTraceID(context.Background()))
	assert.NotNil(t, From(ctx))
}
