// Package logger installs the process-wide slog handler from config.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/glimpse-search/glimpse/pkg/config"
)

// Configure builds a slog handler from cfg and installs it as the
// default logger. It returns a cleanup function closing the log file,
// if one was opened.
func Configure(cfg config.LoggerConfig) (func(), error) {
	var out io.Writer = os.Stderr
	cleanup := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
		cleanup = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch level {
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
