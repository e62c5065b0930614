package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")

	logger.With("component", "hub").Info("user online", "user_id", "u1")
	logger.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "user online", rec["msg"])
	assert.Equal(t, "hub", rec["component"])
	assert.Equal(t, "u1", rec["user_id"])
}

func TestColorFormat(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "text")

	logger.With("component", "http").Warn("request", "status", 404)

	line := buf.String()
	assert.Contains(t, line, "WRN request")
	assert.Contains(t, line, "component=http")
	assert.Contains(t, line, "status=404")
}

func TestColorFormatRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", "text")

	logger.Info("quiet")
	assert.Empty(t, buf.String())
}
