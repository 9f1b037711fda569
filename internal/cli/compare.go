package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/semcmp/pkg/config"
	"github.com/sdejongh/semcmp/pkg/engine"
	"github.com/sdejongh/semcmp/pkg/logging"
	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/output"
	"github.com/sdejongh/semcmp/pkg/result"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare LEFT RIGHT",
		Short: "Compare two files or directory trees semantically",
		Long: `Compare two paths and report whether their contents are equivalent.
Directories are walked, archives (tar, cpio, ar) and compressed streams
(gzip, bzip2, xz, zstd) are opened and compared member by member, text is
compared line by line and ELF objects section by section. Timestamps are
never compared.

Exit codes: 0 equal, 1 different, 2 error, 3 cancelled.`,
		Args: cobra.ExactArgs(2),
		RunE: runCompare,
	}

	f := cmd.Flags()
	f.StringSliceVar(&compareFlags.Ignore, "ignore", nil, "glob patterns to ignore, matched against relative paths and base names")
	f.StringArrayVarP(&compareFlags.IgnoreFiles, "ignore-file", "i", nil, "read ignore patterns from a file, one per line (default "+config.DefaultIgnoreFile+" if present)")
	f.BoolVarP(&compareFlags.ExitASAP, "exit-asap", "e", false, "stop at the first difference")
	f.BoolVar(&compareFlags.BuriedPaths, "buried-paths", false, "treat the differing root directories embedded in content as equal")
	f.BoolVar(&compareFlags.BuildNormalizers, "build-normalizers", false, "mask volatile lines of automake, autoconf and kernel config output")
	f.BoolVar(&compareFlags.IgnoreTrailingSpace, "ignore-trailing-space", false, "ignore trailing whitespace in text")
	f.BoolVar(&compareFlags.BlotDates, "blot-dates", false, "treat dates and times embedded in text as equal")
	f.BoolVar(&compareFlags.CompareMetadata, "compare-metadata", false, "compare archive member mode, owner and link target")
	f.StringSliceVar(&compareFlags.IgnoreElfSections, "ignore-elf-section", nil, "compare ELF objects section by section, skipping these sections")
	f.StringVar(&compareFlags.LeafMethod, "leaf-method", "binary", "fallback content comparison: binary, sha256, md5, xxhash")
	f.IntVar(&compareFlags.MaxDepth, "max-depth", 0, "maximum container nesting to expand (0 = unlimited)")
	f.IntVar(&compareFlags.MaxFailures, "max-failures", 0, "failing children named per difference (0 = all)")
	f.IntVar(&compareFlags.MaxDescriptors, "max-descriptors", 64, "maximum concurrently open streams")
	f.StringVar(&compareFlags.MaxMemory, "max-memory", "256MiB", "maximum buffer and decoder memory (e.g. \"64M\", \"1G\")")
	f.StringVar(&compareFlags.BudgetPolicy, "budget-policy", "block", "when the budget is exhausted: block (wait) or fail (record an error)")
	f.IntVarP(&compareFlags.Parallel, "parallel", "p", 4, "number of parallel workers")
	f.StringVarP(&compareFlags.Bandwidth, "bandwidth", "b", "", "read bandwidth limit per second (e.g. \"10M\", \"1G\")")
	f.StringVarP(&compareFlags.Output, "output", "o", "human", "output format: human, json")
	f.StringVar(&compareFlags.Report, "report", "", "also write the report to a file (.json for JSON)")
	f.BoolVar(&compareFlags.ShowEqual, "show-equal", false, "list equal entries too")
	f.BoolVar(&compareFlags.Progress, "progress", false, "show a progress bar on stderr")

	// Logging flags
	f.StringVar(&compareFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	f.StringVar(&compareFlags.LogFormat, "log-format", "json", "log format: text, json")
	f.StringVar(&compareFlags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	operation, err := createOperation(cfg, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to create compare operation: %w", err)
	}

	logger, err := createLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	formatter, err := output.NewFormatter(cfg.Output.Format, cfg.Output.ShowEqual)
	if err != nil {
		return err
	}
	if cfg.Output.Progress && output.IsTerminal(cmd.ErrOrStderr()) {
		formatter = output.NewProgressFormatter(formatter, cmd.ErrOrStderr())
	}

	out := cmd.OutOrStdout()
	if cfg.Output.Quiet {
		out = io.Discard
	}
	if err := formatter.Start(out, operation); err != nil {
		return err
	}

	eng, err := engine.FromOperation(operation, logger.WithFields(logging.Fields{"operation": operation.ID}))
	if err != nil {
		formatter.Error(err)
		return &ExitError{Code: models.StatusError.ExitCode()}
	}
	eng.SetObserver(func(path string, node *result.Node) {
		formatter.Progress(output.ProgressUpdate{
			Path:    path,
			Kind:    node.LeftKind(),
			Verdict: node.Verdict(),
			Leaf:    node.IsLeaf(),
		})
	})

	startTime := time.Now()
	operation.StartedAt = &startTime

	root, err := eng.Compare(ctx, operation.LeftPath, operation.RightPath)
	if err != nil {
		formatter.Error(err)
		return &ExitError{Code: models.StatusError.ExitCode()}
	}

	endTime := time.Now()
	operation.CompletedAt = &endTime

	report := &models.Report{
		OperationID: operation.ID,
		LeftPath:    operation.LeftPath,
		RightPath:   operation.RightPath,
		StartTime:   startTime,
		EndTime:     endTime,
		Duration:    endTime.Sub(startTime),
		Stats:       eng.Stats(root),
		Status:      root.Status(),
	}
	switch {
	case ctx.Err() != nil:
		report.Status = models.StatusCancelled
	case eng.StoppedEarly():
		// the pairs left uncompared carry errors, the run found a difference
		report.Status = models.StatusUnequal
	}

	if err := formatter.Complete(report, root); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if compareFlags.Report != "" {
		if err := output.WriteReport(compareFlags.Report, reportFormat(compareFlags.Report), cfg.Output.ShowEqual, report, root); err != nil {
			return err
		}
	}

	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// reportFormat picks the report file format from its extension
func reportFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "human"
}
