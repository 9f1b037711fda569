package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/result"
)

var (
	equalLabel   = color.New(color.FgGreen).SprintFunc()
	unequalLabel = color.New(color.FgYellow).SprintFunc()
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	faint        = color.New(color.Faint).SprintFunc()
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer    io.Writer
	showEqual bool
	op        *models.CompareOperation
	startTime time.Time
}

// NewHumanFormatter creates a new human-readable formatter. Equal nodes
// are listed only when showEqual is set.
func NewHumanFormatter(showEqual bool) *HumanFormatter {
	return &HumanFormatter{showEqual: showEqual}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, op *models.CompareOperation) error {
	f.writer = writer
	f.op = op
	f.startTime = time.Now()
	return nil
}

// Progress is a no-op, nodes are rendered on completion in sorted order
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete lists every reported node and the summary
func (f *HumanFormatter) Complete(report *models.Report, root *result.Node) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	return writeHuman(f.writer, report, Differences(root, f.showEqual))
}

func writeHuman(w io.Writer, report *models.Report, diffs []Difference) error {
	for _, d := range diffs {
		fmt.Fprintln(w, formatDifference(d))
	}
	if len(diffs) > 0 {
		fmt.Fprintln(w)
	}

	s := report.Stats
	fmt.Fprintf(w, "Compared %s and %s in %s\n", report.LeftPath, report.RightPath, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Nodes:        %d (%d equal, %d unequal, %d errors)\n", s.Compared, s.Equal, s.Unequal, s.Errors)
	fmt.Fprintf(w, "  Leaves:       %d unequal, %d errors\n", s.LeafUnequal, s.LeafErrors)
	fmt.Fprintf(w, "  Data read:    %s\n", formatBytes(s.BytesRead))
	fmt.Fprintf(w, "  Peak usage:   %d descriptors, %s\n", s.PeakDescriptors, formatBytes(s.PeakMemory))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", statusLabel(report.Status))
	return nil
}

// formatDifference renders one node as "LABEL path: detail"
func formatDifference(d Difference) string {
	v := d.Verdict
	var label string
	switch v.Outcome {
	case models.OutcomeEqual:
		label = equalLabel("SAME ")
	case models.OutcomeError:
		label = errorLabel("ERROR")
	default:
		label = unequalLabel("DIFF ")
	}

	line := label + " " + d.Path
	if v.Reason != models.ReasonNone {
		line += " " + faint("["+string(v.Reason)+"]")
	}
	if d.LeftKind != d.RightKind && d.LeftKind != "" && d.RightKind != "" {
		line += fmt.Sprintf(" (%s vs %s)", d.LeftKind, d.RightKind)
	}
	if v.Detail != "" {
		line += ": " + v.Detail
	}
	return line
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusEqual:
		return equalLabel(string(s))
	case models.StatusUnequal:
		return unequalLabel(string(s))
	default:
		return errorLabel(string(s))
	}
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s: %v\n", errorLabel("Error"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
