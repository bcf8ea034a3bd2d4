package slogx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
	require.Equal(t, slog.LevelInfo, parseLevel("garbage"))
}

func TestContextCarry(t *testing.T) {
	logger := New(Config{Service: "doorcode", Env: "dev", Level: "debug", Format: "text"})
	require.NotNil(t, logger)

	ctx := WithContext(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))

	// Without a logger in the context, the default is returned.
	require.NotNil(t, FromContext(context.Background()))

	// WithSubject derives a child logger; the parent stays untouched.
	sub := WithSubject(ctx, "alice")
	require.NotSame(t, logger, FromContext(sub))
	require.Same(t, logger, FromContext(ctx))
}
