package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/body-echo/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"loud":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestNew_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn"}, &buf)

	l.Info("hidden")
	l.Warn("shown", "stars", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "stars=2")
}

func TestNew_JSONAndFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "echo.log")
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", File: file}, &buf)

	l.Debug("beat", "energy", 1.5)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "beat", rec["msg"])

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"energy":1.5`)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(config.Prefix+"LOG_FORMAT", "json")
	t.Setenv(config.Prefix+"LOG_FILE", "/var/log/echo.log")

	opts := FromEnv("debug")
	assert.Equal(t, Options{Level: "debug", Format: "json", File: "/var/log/echo.log"}, opts)
}
