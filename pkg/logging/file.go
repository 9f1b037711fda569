package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// FileLogger implements Logger interface with file output
type FileLogger struct {
	*slogLogger
	config FileLoggerConfig
	writer *rotatingWriter
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	writer, err := openRotatingWriter(config.Path, config.MaxSize, config.MaxBackups)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       config.Level.slogLevel(),
		ReplaceAttr: fileAttr,
	}
	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return &FileLogger{
		slogLogger: &slogLogger{logger: slog.New(handler), close: writer.Close},
		config:     config,
		writer:     writer,
	}, nil
}

// WithFields returns a logger with additional fields. It shares the
// underlying file.
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{
		slogLogger: l.with(fields),
		config:     l.config,
		writer:     l.writer,
	}
}

// fileAttr keeps the file format stable: UTC timestamps and a "message" key
func fileAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// rotatingWriter appends to a file and rotates it once it reaches maxSize
type rotatingWriter struct {
	path        string
	maxSize     int64
	maxBackups  int
	mu          sync.Mutex
	file        *os.File
	currentSize int64
}

func openRotatingWriter(path string, maxSize int64, maxBackups int) (*rotatingWriter, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &rotatingWriter{
		path:        path,
		maxSize:     maxSize,
		maxBackups:  maxBackups,
		file:        file,
		currentSize: info.Size(),
	}, nil
}

// Write appends one record. slog handlers issue a single Write per record,
// so records are never split across files.
func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	// Check rotation before writing
	if w.maxSize > 0 && w.currentSize >= w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

// Close closes the current file. Later writes fail with os.ErrClosed.
func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate shifts path.N to path.N+1, moves the current file to path.1 and
// reopens path empty
func (w *rotatingWriter) rotate() error {
	w.file.Close()

	// Rotate existing backups
	for i := w.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", w.path, i), fmt.Sprintf("%s.%d", w.path, i+1))
	}

	os.Rename(w.path, w.path+".1")

	// Remove oldest if exceeds max backups
	if w.maxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", w.path, w.maxBackups+1))
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		w.file = nil
		return fmt.Errorf("failed to reopen log file: %w", err)
	}

	w.file = file
	w.currentSize = 0
	return nil
}
