package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/ganymede/pkg/config"
)

// New builds a *slog.Logger per cfg, writing to w. Format "text" selects the
// text handler; anything else gets JSON. When cfg.RedactSecrets is set the
// handler is wrapped so API keys and bearer tokens never reach the output.
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if cfg.RedactSecrets {
		handler = newRedactHandler(handler)
	}

	return slog.New(handler)
}

// Setup builds the process logger per cfg, writing to stdout, and installs
// it as the slog default so package-level slog calls and nil-logger
// fallbacks share it. It returns the logger for direct use.
func Setup(cfg config.LoggingConfig) *slog.Logger {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to its slog.Level. Unknown names fall back
// to Info; configuration validation rejects them before they get here.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
