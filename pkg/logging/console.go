package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
)

// ConsoleLogger writes human-oriented, colored records to a terminal
type ConsoleLogger struct {
	*slogLogger
}

// NewConsoleLogger creates a logger writing to w at the given level.
// Colors follow the terminal detection of the color package, so they are
// off when w is redirected or NO_COLOR is set.
func NewConsoleLogger(w io.Writer, level Level) *ConsoleLogger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level.slogLevel(),
		TimeFormat: time.TimeOnly,
		NoColor:    color.NoColor,
	})
	return &ConsoleLogger{slogLogger: &slogLogger{logger: slog.New(handler)}}
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{slogLogger: l.with(fields)}
}
