package logging

import "log/slog"

// discardLogger drops every record. Its handler is disabled at every
// level, so fields are never converted.
type discardLogger struct {
	*slogLogger
}

var discard = &discardLogger{slogLogger: &slogLogger{logger: slog.New(slog.DiscardHandler)}}

// Discard returns the shared logger used when logging is off
func Discard() Logger { return discard }

func (l *discardLogger) WithFields(Fields) Logger { return l }
