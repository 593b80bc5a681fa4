package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartlink/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewHandlerConsole(t *testing.T) {
	var out bytes.Buffer
	h, closer := NewHandler(config.LoggingConfig{Level: "warn"}, false, &out)
	defer closer.Close()

	logger := slog.New(h)
	logger.Info("hidden")
	logger.Warn("shown", "port", "COM8")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "port=COM8")
}

func TestNewHandlerDebugFlagOverridesLevel(t *testing.T) {
	var out bytes.Buffer
	h, _ := NewHandler(config.LoggingConfig{Level: "error"}, true, &out)

	slog.New(h).Debug("details")
	assert.Contains(t, out.String(), "details")
}

func TestNewHandlerFile(t *testing.T) {
	dir := t.TempDir()
	h, closer := NewHandler(config.LoggingConfig{
		Level:      "info",
		BasePath:   dir,
		Filename:   "app.log",
		MaxSizeMB:  1,
		MaxBackups: 1,
	}, false, nil)

	slog.New(h).Info("started", "version", "1.0.0")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "started", line["msg"])
	assert.Equal(t, "1.0.0", line["version"])
}

func TestTrailAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.log")
	cfg := config.TrailConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1}

	h, closer := NewTrail(cfg)
	slog.New(h).Debug("Connecting to device", "port", "/dev/ttyACM0")
	require.NoError(t, closer.Close())

	h, closer = NewTrail(cfg)
	slog.New(h).Error("Connection failed", "error", "busy")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Connecting to device")
	assert.Contains(t, lines[1], "Connection failed")
}

type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("disk full")
}

func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h failingHandler) WithGroup(string) slog.Handler { return h }

func TestFanoutWritesToAllHandlers(t *testing.T) {
	var console, trail bytes.Buffer
	h := Fanout(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		failingHandler{},
		slog.NewJSONHandler(&trail, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	logger := slog.New(h).With("component", "link")
	logger.Debug("settling")
	logger.Info("Command sent", "command", "like")

	assert.NotContains(t, console.String(), "settling")
	assert.Contains(t, console.String(), "component=link")
	assert.Contains(t, trail.String(), `"msg":"settling"`)
	assert.Contains(t, trail.String(), `"command":"like"`)
}

func TestFanoutWithGroup(t *testing.T) {
	var out bytes.Buffer
	h := Fanout(slog.NewJSONHandler(&out, nil)).WithGroup("device")

	slog.New(h).Info("status", "connected", true)
	assert.Contains(t, out.String(), `"device":{"connected":true}`)
}
