package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger on stderr. JSON if CARVER_JSON_LOG=1/true/json else text.
// Stdout is left alone because the scan report is written there.
func Init(service string) *slog.Logger {
	json := jsonFromEnv()
	logger := New(os.Stderr, service, json, levelFromEnv())
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "json", json)
	return logger
}

// New builds a logger tagged with the service name without touching the global default.
func New(w io.Writer, service string, json bool, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: false, Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", service)
}

func jsonFromEnv() bool {
	mode := strings.ToLower(os.Getenv("CARVER_JSON_LOG"))
	return mode == "1" || mode == "true" || mode == "json"
}

func levelFromEnv() slog.Leveler {
	return ParseLevel(os.Getenv("CARVER_LOG_LEVEL"))
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
