package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"freightdesk/internal/infra/config"
)

// New builds a *slog.Logger from cfg. The second return value closes the
// underlying file when logging to a path and must be deferred by the caller.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	sink, closeSink, err := openSink(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	opts := &slog.HandlerOptions{Level: levelFor(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(sink, opts)
	} else {
		h = slog.NewTextHandler(sink, opts)
	}
	return slog.New(h), closeSink, nil
}

func levelFor(name string) slog.Level {
	switch strings.ToLower(name) {
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

// openSink maps an output target to a writer. "stdout" and "stderr" are
// special names; anything else is treated as a file path and appended to.
func openSink(target string) (io.Writer, func() error, error) {
	keepOpen := func() error { return nil }

	switch strings.ToLower(target) {
	case "stdout":
		return os.Stdout, keepOpen, nil
	case "stderr", "":
		return os.Stderr, keepOpen, nil
	default:
		f, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
