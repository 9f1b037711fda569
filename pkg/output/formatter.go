// Package output renders comparison results for people and for scripts.
package output

import (
	"io"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/result"
)

// ProgressUpdate is sent once for every finished node
type ProgressUpdate struct {
	Path    string
	Kind    models.Kind
	Verdict models.Verdict
	// Leaf is false for directories and expanded containers
	Leaf bool
}

// Formatter defines the interface for output formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new comparison
	Start(writer io.Writer, op *models.CompareOperation) error

	// Progress reports a finished node. It may be called concurrently.
	Progress(update ProgressUpdate) error

	// Complete renders the result tree and the summary
	Complete(report *models.Report, root *result.Node) error

	// Error reports a fatal error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// Difference is one non-equal node of a result tree
type Difference struct {
	Path      string
	LeftKind  models.Kind
	RightKind models.Kind
	Verdict   models.Verdict
	Leaf      bool
}

// Differences lists the nodes of root in Flatten order. Equal nodes are
// included only when withEqual is set.
func Differences(root *result.Node, withEqual bool) []Difference {
	var diffs []Difference
	for p, n := range root.Nodes() {
		if n.Verdict().IsEqual() && !withEqual {
			continue
		}
		diffs = append(diffs, Difference{
			Path:      p,
			LeftKind:  n.LeftKind(),
			RightKind: n.RightKind(),
			Verdict:   n.Verdict(),
			Leaf:      n.IsLeaf(),
		})
	}
	return diffs
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string, showEqual bool) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(showEqual), nil
	case "json":
		return NewJSONFormatter(showEqual), nil
	default:
		return nil, &models.ValidationError{Field: "output", Message: "must be human or json"}
	}
}
