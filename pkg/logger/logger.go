// Package logger provides structured logging using slog with request context support.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request ID.
	RequestIDKey contextKey = "request_id"
	// ExecutionIDKey is the context key for the execution being handled.
	ExecutionIDKey contextKey = "execution_id"
	// BuilderIDKey is the context key for the builder being handled.
	BuilderIDKey contextKey = "builder_id"
)

// Logger wraps slog.Logger with additional context-aware methods.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger writing to stdout with the specified level and format.
func New(level slog.Level, json bool) *Logger {
	return NewWithWriter(os.Stdout, level, json)
}

// NewWithWriter creates a new Logger writing to w.
func NewWithWriter(w io.Writer, level slog.Level, json bool) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Default creates a logger with default settings (INFO level, JSON format).
func Default() *Logger {
	return New(slog.LevelInfo, true)
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError, false)
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// WithContext returns a new Logger with fields extracted from the context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}

	if executionID, ok := ctx.Value(ExecutionIDKey).(string); ok && executionID != "" {
		logger = logger.With("execution_id", executionID)
	}

	if builderID, ok := ctx.Value(BuilderIDKey).(string); ok && builderID != "" {
		logger = logger.With("builder_id", builderID)
	}

	return &Logger{Logger: logger}
}

// WithComponent returns a new Logger with the component field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
	}
}

// WithError returns a new Logger with the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With("error", err.Error()),
	}
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithExecutionID adds an execution ID to the context.
func ContextWithExecutionID(ctx context.Context, executionID string) context.Context {
	return context.WithValue(ctx, ExecutionIDKey, executionID)
}

// ContextWithBuilderID adds a builder ID to the context.
func ContextWithBuilderID(ctx context.Context, builderID string) context.Context {
	return context.WithValue(ctx, BuilderIDKey, builderID)
}
