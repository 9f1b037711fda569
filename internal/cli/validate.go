package cli

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/semcmp/pkg/config"
	"github.com/sdejongh/semcmp/pkg/models"
)

// loadConfig loads the --config file, $SEMCMP_CONFIG or the default file,
// falling back to the defaults when no file exists
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Load(globalFlags.ConfigFile)
	return cfg, err
}

// applyFlagsToConfig overrides config values with the command-line flags
// that were set explicitly
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("ignore") {
		cfg.Ignore = compareFlags.Ignore
	}
	if changed("ignore-file") {
		cfg.IgnoreFiles = compareFlags.IgnoreFiles
	}
	if changed("exit-asap") {
		cfg.Compare.ExitASAP = compareFlags.ExitASAP
	}
	if changed("buried-paths") {
		cfg.Compare.BuriedPaths = compareFlags.BuriedPaths
	}
	if changed("build-normalizers") {
		cfg.Compare.BuildNormalizers = compareFlags.BuildNormalizers
	}
	if changed("ignore-trailing-space") {
		cfg.Compare.IgnoreTrailingSpace = compareFlags.IgnoreTrailingSpace
	}
	if changed("blot-dates") {
		cfg.Compare.BlotDates = compareFlags.BlotDates
	}
	if changed("compare-metadata") {
		cfg.Compare.CompareMetadata = compareFlags.CompareMetadata
	}
	if changed("ignore-elf-section") {
		cfg.Compare.IgnoreElfSections = compareFlags.IgnoreElfSections
	}
	if changed("leaf-method") {
		cfg.Compare.LeafMethod = models.LeafMethod(compareFlags.LeafMethod)
	}
	if changed("max-depth") {
		cfg.Compare.MaxDepth = compareFlags.MaxDepth
	}
	if changed("max-failures") {
		cfg.Compare.MaxFailures = compareFlags.MaxFailures
	}

	// Resources
	if changed("max-descriptors") {
		cfg.Resources.MaxDescriptors = compareFlags.MaxDescriptors
	}
	if changed("max-memory") {
		size, err := parseSize(compareFlags.MaxMemory)
		if err != nil {
			return fmt.Errorf("invalid --max-memory: %w", err)
		}
		cfg.Resources.MaxMemory = size
	}
	if changed("budget-policy") {
		cfg.Resources.BudgetPolicy = models.BudgetPolicy(compareFlags.BudgetPolicy)
	}
	if changed("parallel") {
		cfg.Resources.MaxWorkers = compareFlags.Parallel
	}
	if changed("bandwidth") {
		limit, err := parseSize(compareFlags.Bandwidth)
		if err != nil {
			return fmt.Errorf("invalid --bandwidth: %w", err)
		}
		cfg.Resources.BandwidthLimit = limit
	}

	// Output
	if changed("output") {
		cfg.Output.Format = compareFlags.Output
	}
	if changed("show-equal") {
		cfg.Output.ShowEqual = compareFlags.ShowEqual
	}
	if changed("progress") {
		cfg.Output.Progress = compareFlags.Progress
	}

	// Logging
	if changed("log-file") {
		cfg.Logging.File = compareFlags.LogFile
	}
	if changed("log-format") {
		cfg.Logging.Format = compareFlags.LogFormat
	}
	if changed("log-level") {
		cfg.Logging.Level = compareFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}
	return nil
}

// parseSize parses a byte size such as "64M", "1GiB" or "4096". Units
// are binary. An empty string is zero.
func parseSize(s string) (int64, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return units.RAMInBytes(s)
}

// createOperation creates a compare operation from configuration
func createOperation(cfg *config.Config, left, right string) (*models.CompareOperation, error) {
	operation := cfg.Operation(left, right)
	patterns, err := cfg.IgnorePatterns()
	if err != nil {
		return nil, err
	}
	operation.IgnorePatterns = patterns
	operation.ID = uuid.New().String()
	operation.CreatedAt = time.Now()

	if err := operation.Validate(); err != nil {
		return nil, err
	}
	return operation, nil
}
