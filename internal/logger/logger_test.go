package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContext verifies the context round-trip and the global fallback.
func TestFromContext(t *testing.T) {
	t.Parallel()

	// No logger attached: fall back to the global one.
	require.Same(t, Logger(), FromContext(context.Background()))

	scoped := zap.NewNop().Sugar()
	ctx := ToContext(context.Background(), scoped)
	require.Same(t, scoped, FromContext(ctx))

	// WithName and WithKV attach derived loggers.
	named := WithName(ctx, "test")
	require.NotSame(t, scoped, FromContext(named))

	bound := WithKV(ctx, "school_id", "school-a")
	require.NotSame(t, scoped, FromContext(bound))
}
