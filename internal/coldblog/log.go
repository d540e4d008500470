// Package coldblog installs a process-wide structured logger for the
// server and CLI, configured by the LOG_LEVEL environment variable.
package coldblog

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs a text-handler slog.Logger as the process default,
// reading LOG_LEVEL (debug/info/warn/error, case-insensitive, default
// info) the way a one-off deployment expects to tune verbosity without
// a config file edit.
func Init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
