package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := useCore(core)
	t.Cleanup(restore)
	return logs
}

func TestLogMessage_ComponentAndFields(t *testing.T) {
	logs := observe(t)
	SetLevel(DEBUG)
	t.Cleanup(func() { SetLevel(INFO) })

	InfoCF("agent", "summary committed", map[string]any{"thread_id": "t1", "covered": 20})

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "summary committed", entries[0].Message)
	assert.Equal(t, "agent", ctx["component"])
	assert.Equal(t, "t1", ctx["thread_id"])
	assert.EqualValues(t, 20, ctx["covered"])
}

func TestLogMessage_LevelFilter(t *testing.T) {
	logs := observe(t)
	SetLevel(WARN)
	t.Cleanup(func() { SetLevel(INFO) })

	DebugC("agent", "dropped")
	InfoC("agent", "dropped too")
	WarnC("agent", "kept")
	ErrorF("kept as well", nil)

	assert.Equal(t, 2, logs.Len())
}

func TestLogMessage_Redacts(t *testing.T) {
	logs := observe(t)

	WarnCF("providers", "call failed with api_key=sk-proj-1234567890abcdefghijklmnop",
		map[string]any{"api_key": "secret-value", "tokens_before": 10})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Message, "sk-proj")
	assert.Equal(t, "[REDACTED]", entries[0].ContextMap()["api_key"])
	assert.EqualValues(t, 10, entries[0].ContextMap()["tokens_before"])
}

func TestLogMessage_RedactionDisabled(t *testing.T) {
	logs := observe(t)
	SetRedactionEnabled(false)
	t.Cleanup(func() { SetRedactionEnabled(true) })
	assert.False(t, IsRedactionEnabled())

	Info("password=hunter2hunter2")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "password=hunter2hunter2", logs.All()[0].Message)
}

func TestEnableFileLogging_WritesJSON(t *testing.T) {
	observe(t)
	path := filepath.Join(t.TempDir(), "threadgate.log")

	require.NoError(t, EnableFileLogging(path))
	InfoCF("gate", "turn processed", map[string]any{"spam": false})
	DisableFileLogging()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	require.NotEmpty(t, line)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "turn processed", entry["msg"])
	assert.Equal(t, "gate", entry["component"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"warn", WARN},
		{"ERROR", ERROR},
		{"nonsense", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
