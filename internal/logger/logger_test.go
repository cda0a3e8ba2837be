package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
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

// TestFromContext ensures context helpers round-trip a logger and fall back to the global one.
func TestFromContext(t *testing.T) {
	t.Parallel()

	// No logger stored -> global.
	require.Same(t, Logger(), FromContext(context.Background()))

	l := zaptest.NewLogger(t).Sugar()
	ctx := ToContext(context.Background(), l)
	require.Same(t, l, FromContext(ctx))

	// WithName and WithKV derive a new logger in the context.
	named := WithName(ctx, "fetcher")
	require.NotSame(t, l, FromContext(named))

	tagged := WithKV(ctx, "session", "abc")
	require.NotSame(t, l, FromContext(tagged))
}
