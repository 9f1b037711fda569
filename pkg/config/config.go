package config

import (
	"github.com/sdejongh/semcmp/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Compare   CompareConfig   `yaml:"compare"`
	Resources ResourcesConfig `yaml:"resources"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Ignore    []string        `yaml:"ignore"`
	// IgnoreFiles list more patterns, one per line. When empty the
	// DefaultIgnoreFile of the working directory is read if present.
	IgnoreFiles []string `yaml:"ignore_files"`
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	LeafMethod          models.LeafMethod `yaml:"leaf_method"`
	IgnoreTrailingSpace bool              `yaml:"ignore_trailing_space"`
	BlotDates           bool              `yaml:"blot_dates"`
	CompareMetadata     bool              `yaml:"compare_metadata"`
	IgnoreElfSections   []string          `yaml:"ignore_elf_sections"`
	MaxDepth            int               `yaml:"max_depth"`    // 0 = unlimited
	MaxFailures         int               `yaml:"max_failures"` // 0 = unlimited
	BuriedPaths         bool              `yaml:"buried_paths"`
	BuildNormalizers    bool              `yaml:"build_normalizers"`
	ExitASAP            bool              `yaml:"exit_asap"`
}

// ResourcesConfig holds the stream budget and performance settings
type ResourcesConfig struct {
	MaxWorkers     int                 `yaml:"max_workers"`
	MaxDescriptors int                 `yaml:"max_descriptors"`
	MaxMemory      int64               `yaml:"max_memory"`
	BudgetPolicy   models.BudgetPolicy `yaml:"budget_policy"`
	BufferSize     int                 `yaml:"buffer_size"`
	BandwidthLimit int64               `yaml:"bandwidth_limit"` // bytes per second, 0 = unlimited
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format    string `yaml:"format"`     // "human" or "json"
	Progress  bool   `yaml:"progress"`   // Show a progress bar on stderr
	ShowEqual bool   `yaml:"show_equal"` // List equal nodes too
	Quiet     bool   `yaml:"quiet"`      // Suppress the report, keep the exit code
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = no file log)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			LeafMethod: models.LeafBinary,
		},
		Resources: ResourcesConfig{
			MaxWorkers:     4,
			MaxDescriptors: 64,
			MaxMemory:      256 * 1024 * 1024,
			BudgetPolicy:   models.PolicyBlock,
			BufferSize:     65536,
			BandwidthLimit: 0,
		},
		Output: OutputConfig{
			Format: "human",
		},
		Logging: LoggingConfig{
			Format:     "json",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Ignore:      []string{},
		IgnoreFiles: []string{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Resources.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "resources.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Resources.MaxDescriptors < 2 {
		return &models.ValidationError{
			Field:   "resources.max_descriptors",
			Message: "must be at least 2",
		}
	}

	if c.Resources.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "resources.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Resources.MaxMemory < 2*int64(c.Resources.BufferSize) {
		return &models.ValidationError{
			Field:   "resources.max_memory",
			Message: "must hold at least two read buffers",
		}
	}

	if c.Resources.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "resources.bandwidth_limit",
			Message: "cannot be negative",
		}
	}

	switch c.Resources.BudgetPolicy {
	case models.PolicyBlock, models.PolicyFail:
	default:
		return &models.ValidationError{
			Field:   "resources.budget_policy",
			Message: "must be 'block' or 'fail'",
		}
	}

	switch c.Compare.LeafMethod {
	case models.LeafBinary, models.LeafSHA256, models.LeafMD5, models.LeafXXHash:
	default:
		return &models.ValidationError{
			Field:   "compare.leaf_method",
			Message: "must be 'binary', 'sha256', 'md5' or 'xxhash'",
		}
	}

	if c.Compare.MaxDepth < 0 {
		return &models.ValidationError{
			Field:   "compare.max_depth",
			Message: "cannot be negative",
		}
	}

	if c.Compare.MaxFailures < 0 {
		return &models.ValidationError{
			Field:   "compare.max_failures",
			Message: "cannot be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// Operation builds the comparison operation for two roots
func (c *Config) Operation(left, right string) *models.CompareOperation {
	return &models.CompareOperation{
		LeftPath:            left,
		RightPath:           right,
		IgnorePatterns:      append([]string(nil), c.Ignore...),
		LeafMethod:          c.Compare.LeafMethod,
		IgnoreTrailingSpace: c.Compare.IgnoreTrailingSpace,
		BlotDates:           c.Compare.BlotDates,
		CompareMetadata:     c.Compare.CompareMetadata,
		IgnoreElfSections:   append([]string(nil), c.Compare.IgnoreElfSections...),
		BuriedPaths:         c.Compare.BuriedPaths,
		BuildNormalizers:    c.Compare.BuildNormalizers,
		ExitASAP:            c.Compare.ExitASAP,
		MaxDepth:            c.Compare.MaxDepth,
		MaxFailures:         c.Compare.MaxFailures,
		MaxWorkers:          c.Resources.MaxWorkers,
		MaxDescriptors:      c.Resources.MaxDescriptors,
		MaxMemory:           c.Resources.MaxMemory,
		BudgetPolicy:        c.Resources.BudgetPolicy,
		BufferSize:          c.Resources.BufferSize,
		BandwidthLimit:      c.Resources.BandwidthLimit,
	}
}
