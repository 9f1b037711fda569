// Package logging provides the structured logger used across the tool.
// Loggers are built on log/slog: a colored console handler for
// interactive runs and a rotating file handler for persistent logs.
package logging

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger defines the interface for logging
// Implementations include console, file, multi and discard loggers
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields Fields)

	// Info logs an info message
	Info(ctx context.Context, msg string, fields Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs an error message
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger with additional fields
	WithFields(fields Fields) Logger

	// Close flushes and closes the logger
	Close() error
}

// slogLevel maps a Level onto the slog scale
func (l Level) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the upper-case level name
func (l Level) String() string {
	return levelString(l)
}

// levelString returns the string representation of a log level
func levelString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// LevelString returns level as string (exported version)
func LevelString(level Level) string {
	return levelString(level)
}

// attrs converts fields to slog arguments in key order
func attrs(fields Fields) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, slog.Any(k, fields[k]))
	}
	return args
}

// slogLogger adapts a *slog.Logger to the Logger interface. Console and
// file loggers differ only in their handler and what Close releases.
type slogLogger struct {
	logger *slog.Logger
	close  func() error
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, fields Fields) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, msg, attrs(fields)...)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	if !l.logger.Enabled(ctx, slog.LevelError) {
		return
	}
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.logger.Log(ctx, slog.LevelError, msg, args...)
}

func (l *slogLogger) with(fields Fields) *slogLogger {
	return &slogLogger{logger: l.logger.With(attrs(fields)...), close: l.close}
}

func (l *slogLogger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}
