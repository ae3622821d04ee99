package util

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs the process-wide structured logger. docchat logs JSON
// to stdout; every package logs through the slog default this sets.
// Level is one of debug, info, warn, error; anything else falls back to info.
func InitLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	}))
	slog.SetDefault(logger)
	return logger
}
