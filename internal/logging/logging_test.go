package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		level, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, level, name)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestSetup(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "predicates", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown predicates=3")
	assert.Same(t, logger, slog.Default())

	_, _, err = Setup(Options{Level: "loud"})
	require.Error(t, err)
}

func TestMultiHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h).With("query", 1).WithGroup("plan")

	logger.Debug("costed", "cost", 7)
	logger.Warn("rejected", "reason", "empty")

	assert.Contains(t, debug.String(), "msg=costed query=1 plan.cost=7")
	assert.Contains(t, debug.String(), "msg=rejected")
	assert.NotContains(t, warn.String(), "costed")
	assert.Contains(t, warn.String(), "msg=rejected query=1 plan.reason=empty")
}
