package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, LevelTrace, lvl)

	lvl, err = ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestModuleGating(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(&buf, LevelTrace, false)))

	DisableModule(VMMonitoring)
	Debug(VMMonitoring, "hidden")
	assert.Empty(t, buf.String())

	EnableModules("vm_mod, harness_mod")
	defer DisableModule(VMMonitoring)
	defer DisableModule(HarnessMonitoring)
	Debug(VMMonitoring, "shown", "step", 1)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "module=vm_mod")
	assert.Contains(t, buf.String(), "DEBUG")
}

func TestRecordLogs(t *testing.T) {
	l := NewLogger(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: LevelTrace}))
	l.RecordLogs()
	l.Info(HostMonitoring, "proved", "segments", 2)
	l.Warn(HostMonitoring, "slow")

	out, err := l.GetRecordedLogs()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"proved"`)
	assert.Contains(t, lines[0], `"module":"host_mod"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
}

func TestHandlers(t *testing.T) {
	ctx := context.Background()
	discard := DiscardHandler()
	for _, lvl := range []slog.Level{LevelTrace, LevelInfo, LevelCrit} {
		assert.False(t, discard.Enabled(ctx, lvl))
	}

	var buf bytes.Buffer
	h := NewTerminalHandlerWithLevel(&buf, LevelWarn, false)
	assert.False(t, h.Enabled(ctx, LevelInfo))
	assert.True(t, h.Enabled(ctx, LevelWarn))
	assert.True(t, h.Enabled(ctx, LevelCrit))

	l := NewLogger(h)
	l.Info(StoreMonitoring, "dropped")
	l.Warn(StoreMonitoring, "kept", "key", "m/1")
	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "key=m/1")
	assert.NotContains(t, out, "\x1b[")
}
