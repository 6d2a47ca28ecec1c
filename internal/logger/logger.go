// Package logger provides structured logging utilities for the application.
// It wraps log/slog with JSON formatting, enriches records with tracing
// values from the context and optionally ships logs to Better Stack.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger
type Logger struct {
	*slog.Logger
	remote *shipper
}

// Options configures NewWithOptions.
type Options struct {
	Level  string
	Writer io.Writer // defaults to os.Stdout

	// BetterstackToken enables log shipping to Better Stack when set.
	BetterstackToken    string
	BetterstackEndpoint string
	Async               AsyncOptions
}

// New creates a new logger instance with JSON formatting
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger instance with JSON formatting writing to the provided writer
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(Options{Level: level, Writer: w})
}

// NewWithOptions builds the JSON stdout logger and, when a Better Stack token
// is configured, fans records out to an async Better Stack handler as well.
// Both sinks see the tracing values carried by the context.
func NewWithOptions(o Options) *Logger {
	w := o.Writer
	if w == nil {
		w = os.Stdout
	}
	logLevel := parseLevel(o.Level)

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: replaceAttr,
	})

	var remote *shipper
	if o.BetterstackToken != "" {
		bs := slogbetterstack.Option{
			Level:    logLevel,
			Token:    o.BetterstackToken,
			Endpoint: o.BetterstackEndpoint,
		}.NewBetterstackHandler()
		remote = newShipper(bs, o.Async)
		handler = fanout{handler, remote}
	}

	return &Logger{Logger: slog.New(withTracing(handler)), remote: remote}
}

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

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// Shutdown flushes logs still queued for remote shipping.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.remote.Shutdown(ctx)
}

// Dropped reports remote log records lost to a full queue or a late write.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.remote.Dropped()
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return &Logger{Logger: l.With("module", module), remote: l.remote}
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.With("request_id", requestID), remote: l.remote}
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err), remote: l.remote}
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(key, value), remote: l.remote}
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...), remote: l.remote}
}

// Compatibility methods for logrus-style formatting

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}
