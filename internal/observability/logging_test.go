package observability_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func TestBuild_RejectsBadSettings(t *testing.T) {
	for _, cfg := range []config.LoggingConfig{
		{Level: "trace", Format: "json"},
		{Level: "info", Format: "xml"},
	} {
		_, err := observability.Build(cfg, zapcore.AddSync(&bytes.Buffer{}))
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestBuild_JSONLineWithVirtualTime(t *testing.T) {
	var buf bytes.Buffer
	logger, err := observability.Build(config.LoggingConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	vt := observability.WithVirtualTime(logger, func() time.Duration { return 2500 * time.Millisecond })
	vt.Debug("filtered")
	vt.Info("wave started", zap.String("encounter", "gate"))
	require.NoError(t, vt.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "wave started", entry["msg"])
	assert.Equal(t, "2.5s", entry[observability.VirtualTimeKey])
	assert.Equal(t, "gate", entry["encounter"])
	assert.Contains(t, entry, "caller")
}

func TestBuild_ConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := observability.Build(config.LoggingConfig{Level: "warn", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger.Warn("counter window missed")
	assert.Contains(t, buf.String(), "counter window missed")
}

func TestWithVirtualTime_FollowsClockAcrossWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	now := 1500 * time.Millisecond
	logger := observability.WithVirtualTime(zap.New(core), func() time.Duration { return now })

	logger.Info("wave started")
	now = 4 * time.Second
	logger.With(zap.String("encounter", "gate")).Debug("turn granted")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, 1500*time.Millisecond, entries[0].ContextMap()[observability.VirtualTimeKey])
	assert.Equal(t, 4*time.Second, entries[1].ContextMap()[observability.VirtualTimeKey])
	assert.Equal(t, "gate", entries[1].ContextMap()["encounter"])
}

func TestWithVirtualTime_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := observability.WithVirtualTime(zap.New(core), func() time.Duration { return 0 })
	logger.Debug("dropped")
	assert.Zero(t, logs.Len())
}
