package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build information set via ldflags. Values left empty are taken from the
// module and VCS data embedded by the Go toolchain.
var (
	Version   string
	Commit    string
	BuildDate string
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version  string
	Commit   string
	Date     string
	Modified bool
	Go       string
	Platform string
}

// CurrentBuild merges the ldflags values with the embedded build data
func CurrentBuild() BuildInfo {
	b := BuildInfo{
		Version:  Version,
		Commit:   Commit,
		Date:     BuildDate,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if b.Version == "" && info.Main.Version != "(devel)" {
			b.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
	}

	if b.Version == "" {
		b.Version = "dev"
	}
	if len(b.Commit) > 12 {
		b.Commit = b.Commit[:12]
	}
	if b.Commit == "" {
		b.Commit = "none"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

// String returns the one-line form used by --version
func (b BuildInfo) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("%s (commit %s, built %s, %s %s)", b.Version, commit, b.Date, b.Go, b.Platform)
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			b := CurrentBuild()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), b.Version)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "semcmp %s\n", b)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")

	return cmd
}
