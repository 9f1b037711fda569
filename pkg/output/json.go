package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/result"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer    io.Writer
	showEqual bool
	op        *models.CompareOperation
}

// JSONReportData represents the final report
type JSONReportData struct {
	ID          string         `json:"id,omitempty"`
	Left        string         `json:"left"`
	Right       string         `json:"right"`
	Status      string         `json:"status"`
	ExitCode    int            `json:"exit_code"`
	Duration    string         `json:"duration,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	Stats       JSONStatsData  `json:"stats"`
	Differences []JSONNodeData `json:"differences,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
}

// JSONNodeData represents one reported node
type JSONNodeData struct {
	Path      string   `json:"path"`
	Outcome   string   `json:"outcome"`
	Reason    string   `json:"reason,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	LeftKind  string   `json:"left_kind,omitempty"`
	RightKind string   `json:"right_kind,omitempty"`
	Failing   []string `json:"failing,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	Compared        int   `json:"compared"`
	Equal           int   `json:"equal"`
	Unequal         int   `json:"unequal"`
	Errors          int   `json:"errors"`
	LeafUnequal     int   `json:"leaf_unequal"`
	LeafErrors      int   `json:"leaf_errors"`
	BytesRead       int64 `json:"bytes_read"`
	PeakDescriptors int64 `json:"peak_descriptors"`
	PeakMemory      int64 `json:"peak_memory"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(showEqual bool) *JSONFormatter {
	return &JSONFormatter{showEqual: showEqual}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, op *models.CompareOperation) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.op = op
	return nil
}

// Progress is a no-op to keep the output a single parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report as one indented JSON document
func (f *JSONFormatter) Complete(report *models.Report, root *result.Node) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	return f.encode(buildJSON(report, Differences(root, f.showEqual)))
}

func (f *JSONFormatter) encode(data JSONReportData) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func buildJSON(report *models.Report, diffs []Difference) JSONReportData {
	s := report.Stats
	data := JSONReportData{
		ID:         report.OperationID,
		Left:       report.LeftPath,
		Right:      report.RightPath,
		Status:     string(report.Status),
		ExitCode:   report.Status.ExitCode(),
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Stats: JSONStatsData{
			Compared:        s.Compared,
			Equal:           s.Equal,
			Unequal:         s.Unequal,
			Errors:          s.Errors,
			LeafUnequal:     s.LeafUnequal,
			LeafErrors:      s.LeafErrors,
			BytesRead:       s.BytesRead,
			PeakDescriptors: s.PeakDescriptors,
			PeakMemory:      s.PeakMemory,
		},
	}

	for _, d := range diffs {
		data.Differences = append(data.Differences, JSONNodeData{
			Path:      d.Path,
			Outcome:   string(d.Verdict.Outcome),
			Reason:    string(d.Verdict.Reason),
			Detail:    d.Verdict.Detail,
			LeftKind:  string(d.LeftKind),
			RightKind: string(d.RightKind),
			Failing:   d.Verdict.Failing,
		})
	}
	return data
}

// Error writes a document for a run that produced no result tree
func (f *JSONFormatter) Error(err error) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	data := JSONReportData{
		Status:   string(models.StatusError),
		ExitCode: models.StatusError.ExitCode(),
		Errors:   []string{err.Error()},
	}
	if f.op != nil {
		data.ID = f.op.ID
		data.Left = f.op.LeftPath
		data.Right = f.op.RightPath
	}
	return f.encode(data)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
