// Package logger owns the process-wide slog logger. The CLI and the
// command server both route logging through it, so the config's
// log_format and log_level apply to every component.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Log is the active logger. Before Setup runs it logs text at info
// level, which covers early startup errors.
var Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// Setup rebuilds Log from the configured format and level and
// installs it as slog's default. Format is "json" or "text"; unknown
// formats fall back to text so a typo in the config never silences
// logging.
func Setup(format, level string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	Log = slog.New(handler)
	slog.SetDefault(Log)
}

// parseLevel maps the config's log_level string to a slog level.
// Unknown values mean info.
func parseLevel(level string) slog.Level {
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

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }

// With returns a child logger carrying the given attributes, for
// components that tag every line (e.g. "component", "server").
func With(args ...any) *slog.Logger {
	return Log.With(args...)
}
