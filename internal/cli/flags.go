package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $SEMCMP_CONFIG, then $XDG_CONFIG_HOME/semcmp/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"log progress and differences to stderr",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"print nothing, report through the exit code only",
	)
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// CompareFlags holds compare command flags. Sizes are kept as strings
// and parsed once the command runs.
type CompareFlags struct {
	Ignore              []string
	IgnoreFiles         []string
	ExitASAP            bool
	BuriedPaths         bool
	BuildNormalizers    bool
	IgnoreTrailingSpace bool
	BlotDates           bool
	CompareMetadata     bool
	IgnoreElfSections   []string
	LeafMethod          string
	MaxDepth            int
	MaxFailures         int
	MaxDescriptors      int
	MaxMemory           string
	BudgetPolicy        string
	Parallel            int
	Bandwidth           string
	Output              string
	Report              string
	ShowEqual           bool
	Progress            bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var compareFlags CompareFlags
