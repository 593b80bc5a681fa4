// Package logging builds the slog loggers used by the service: the
// application log and the append-only device diagnostic trail.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"heartlink/config"
)

// ParseLevel converts a config level name to a slog.Level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates the application logger. With a base path the log is JSON in a
// rotated file, otherwise text on stdout. The closer releases the file.
func New(cfg config.LoggingConfig, debug bool) (*slog.Logger, io.Closer) {
	handler, closer := NewHandler(cfg, debug, os.Stdout)
	return slog.New(handler), closer
}

// NewHandler is New without the logger wrapper; console output goes to out
func NewHandler(cfg config.LoggingConfig, debug bool, out io.Writer) (slog.Handler, io.Closer) {
	level := ParseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// If base path is set, use file logging with rotation
	if cfg.BasePath != "" {
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.BasePath, cfg.Filename),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		return slog.NewJSONHandler(writer, opts), writer
	}

	return slog.NewTextHandler(out, opts), nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewTrail creates the device diagnostic trail: every record at debug level
// and above appended as a JSON line to a rotated file.
func NewTrail(cfg config.TrailConfig) (slog.Handler, io.Closer) {
	writer := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, writer
}
