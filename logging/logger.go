// Package logging wires log/slog into the notification pipeline. It provides
// the local structured sink, a bridge handler that forwards failure-level
// records into the dispatcher, and a fanout so one logger feeds both.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/opsflare-systems/opsflare/runtimectx"
)

// LoggerAttr names the attribute carrying the emitting logger's name. Named
// loggers keep dedup fingerprints and quiet-level filtering stable.
const LoggerAttr = "logger"

// Logger wraps slog.Logger to provide context-aware structured logging.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout with the given level and format.
// format can be "json" or "text" (default is json).
func New(level slog.Level, format string) *Logger {
	return &Logger{Logger: slog.New(NewSinkHandler(level, format))}
}

// Wrap adapts an existing slog.Logger.
func Wrap(l *slog.Logger) *Logger {
	return &Logger{Logger: l}
}

// NewSinkHandler builds the local sink handler used by New.
func NewSinkHandler(level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location for errors and above
		AddSource: level <= slog.LevelError,
	}
	switch format {
	case "text":
		return slog.NewTextHandler(os.Stdout, opts)
	default:
		return slog.NewJSONHandler(os.Stdout, opts)
	}
}

// WithContext returns a logger annotated with the active runtime context.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	rc := runtimectx.FromContext(ctx)
	if rc == nil {
		rc = runtimectx.Current()
	}
	if rc == nil {
		return l.Logger
	}
	return l.Logger.With(
		slog.String("invocation_id", rc.InvocationID),
		slog.String("source", string(rc.Source)),
	)
}

// With returns a new logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Named returns a logger carrying a logger-name attribute.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String(LoggerAttr, name))}
}

// ParseLevel converts a string log level to slog.Level.
// Valid values: "debug", "info", "warn", "error".
// Returns slog.LevelInfo for invalid values.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// SetDefault installs l as the process default logger, affecting both
// slog.Default() and the log package.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
