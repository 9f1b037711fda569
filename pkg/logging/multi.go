package logging

import (
	"context"

	"go.uber.org/multierr"
)

// MultiLogger fans every record out to several loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) Debug(ctx context.Context, msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Debug(ctx, msg, fields)
	}
}

func (m *MultiLogger) Info(ctx context.Context, msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Info(ctx, msg, fields)
	}
}

func (m *MultiLogger) Warn(ctx context.Context, msg string, fields Fields) {
	for _, l := range m.loggers {
		l.Warn(ctx, msg, fields)
	}
}

func (m *MultiLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	for _, l := range m.loggers {
		l.Error(ctx, msg, err, fields)
	}
}

// WithFields returns a combined logger whose members carry the fields
func (m *MultiLogger) WithFields(fields Fields) Logger {
	out := &MultiLogger{loggers: make([]Logger, len(m.loggers))}
	for i, l := range m.loggers {
		out.loggers[i] = l.WithFields(fields)
	}
	return out
}

// Close closes every logger and reports all failures
func (m *MultiLogger) Close() error {
	var err error
	for _, l := range m.loggers {
		err = multierr.Append(err, l.Close())
	}
	return err
}
