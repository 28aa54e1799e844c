package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the process-wide slog default: text output when
// DEV_MODE=1, JSON otherwise, level from LOG_LEVEL.
func Setup() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.TrimSpace(os.Getenv("DEV_MODE")) == "1" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}

	lg := slog.New(h)
	slog.SetDefault(lg)
	return lg
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
