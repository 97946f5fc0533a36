package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tourdesk-shift-settlement/internal/config"
)

// NewLogger creates the process logger writing JSON records to stdout
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a JSON logger writing to w. Every record carries the
// application name and environment so gateway, processor and CLI logs can be
// told apart once shipped.
func NewLoggerTo(w io.Writer, cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("app", cfg.Application.Name, "env", cfg.Application.Env)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

// ForDay returns a child logger scoped to one business day
func ForDay(logger *slog.Logger, day time.Time) *slog.Logger {
	return logger.With("business_day", day.Format(time.DateOnly))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
