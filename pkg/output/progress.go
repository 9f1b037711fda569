package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/result"
)

const (
	progressTemplate = `{{ cycle . "|" "/" "-" "\\" }} {{ counters . }} nodes {{ string . "diffs" }} {{ string . "path" }} {{ etime . }}`
	// maxPathWidth bounds the path column so the bar stays on one line
	maxPathWidth = 48
)

// getUpdateInterval returns the progress update interval based on OS
// Windows terminals have higher latency with ANSI sequences, so we use a longer interval
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or 0 when unknown
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// ProgressFormatter shows a live counter of compared nodes on its own
// writer and delegates everything else to the wrapped formatter. The
// total is unknown up front since containers are only expanded when
// reached.
type ProgressFormatter struct {
	Formatter
	out     io.Writer
	bar     *pb.ProgressBar
	unequal atomic.Int64
	errors  atomic.Int64
}

// NewProgressFormatter wraps inner with a progress bar written to out
func NewProgressFormatter(inner Formatter, out io.Writer) *ProgressFormatter {
	return &ProgressFormatter{Formatter: inner, out: out}
}

// Start starts the bar and the wrapped formatter
func (f *ProgressFormatter) Start(writer io.Writer, op *models.CompareOperation) error {
	f.bar = pb.New64(0).
		SetTemplateString(progressTemplate).
		SetWriter(f.out).
		SetRefreshRate(getUpdateInterval()).
		Set("diffs", "").
		Set("path", "")
	if width := terminalWidth(f.out); width > 0 {
		f.bar.SetMaxWidth(width)
	}
	f.bar.Start()
	return f.Formatter.Start(writer, op)
}

// Progress counts the node and forwards the update
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	if update.Leaf {
		switch update.Verdict.Outcome {
		case models.OutcomeUnequal:
			f.unequal.Add(1)
		case models.OutcomeError:
			f.errors.Add(1)
		}
	}
	if f.bar != nil {
		f.bar.Increment()
		f.bar.Set("diffs", fmt.Sprintf("(%d differ, %d errors)", f.unequal.Load(), f.errors.Load()))
		f.bar.Set("path", truncatePath(update.Path, maxPathWidth))
	}
	return f.Formatter.Progress(update)
}

// Complete stops the bar before the final output
func (f *ProgressFormatter) Complete(report *models.Report, root *result.Node) error {
	f.finish()
	return f.Formatter.Complete(report, root)
}

// Error stops the bar before reporting
func (f *ProgressFormatter) Error(err error) error {
	f.finish()
	return f.Formatter.Error(err)
}

// Name returns the wrapped formatter name
func (f *ProgressFormatter) Name() string {
	return f.Formatter.Name()
}

func (f *ProgressFormatter) finish() {
	if f.bar == nil {
		return
	}
	f.bar.Set("path", "")
	f.bar.Finish()
	f.bar = nil
}

// truncatePath keeps the tail of p, which names the entry being compared
func truncatePath(p string, width int) string {
	r := []rune(p)
	if len(r) <= width || width < 4 {
		return p
	}
	return "..." + string(r[len(r)-width+3:])
}
