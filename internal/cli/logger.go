package cli

import (
	"io"

	"github.com/sdejongh/semcmp/pkg/config"
	"github.com/sdejongh/semcmp/pkg/logging"
)

// createLogger creates the run logger. Records go to the log file when one
// is configured and to stderr in verbose mode; otherwise they are dropped.
func createLogger(cfg *config.Config, stderr io.Writer) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)

	var loggers []logging.Logger
	if cfg.Logging.File != "" {
		format := logging.FormatJSON
		if cfg.Logging.Format == "text" {
			format = logging.FormatText
		}
		file, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      level,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, file)
	}
	if globalFlags.Verbose && !globalFlags.Quiet {
		loggers = append(loggers, logging.NewConsoleLogger(stderr, level))
	}

	switch len(loggers) {
	case 0:
		return logging.Discard(), nil
	case 1:
		return loggers[0], nil
	default:
		return logging.NewMultiLogger(loggers...), nil
	}
}
