// Package obs wraps log/slog with the node-specific fields every log line
// in this service carries (node id, round), the same way the rest of the
// corpus builds a thin ergonomic layer over the standard structured
// logger rather than reaching for a third-party logging library.
package obs

import (
	"log/slog"
	"os"
)

// Logger is a structured logger bound to a node id.
type Logger struct {
	inner *slog.Logger
}

// New returns a JSON-handler logger at the given level, writing to os.Stderr.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler wraps an arbitrary slog.Handler, e.g. for tests that want
// to capture log output.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// ParseLevel maps a CLI-friendly level name to a slog.Level, defaulting
// to Info for anything unrecognized.
func ParseLevel(name string) slog.Level {
	switch name {
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

// WithNode returns a child logger that attaches node_id to every record.
func (l *Logger) WithNode(id int) *Logger {
	return &Logger{inner: l.inner.With("node_id", id)}
}

// WithRound returns a child logger that attaches round to every record.
func (l *Logger) WithRound(round string) *Logger {
	return &Logger{inner: l.inner.With("round", round)}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
