// Package compare holds the comparison strategies and the registry that
// maps each entry kind to one of them.
package compare

import (
	"context"
	"io"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// Strategy compares two entries of the same kind
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Compare compares the two entries. Failures are reported as an error
	// verdict, never as a panic or a separate error value.
	Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict
}

// Expander is a strategy for composite kinds. The engine expands both
// sides and recurses into the children; Compare then only judges the
// container itself, not its content.
type Expander interface {
	Strategy

	// Expand returns the children of e. Children sharing a name are
	// collapsed by the caller, the last one wins.
	Expand(ctx context.Context, streams *storage.Streams, e *storage.Entry) ([]*storage.Entry, error)
}

// readerComparer is implemented by content strategies that can judge
// readers prepared by a wrapping strategy, such as streams with paths
// masked
type readerComparer interface {
	Strategy
	compareReaders(ctx context.Context, left, right *storage.Entry, lr, rr io.Reader) models.Verdict
}

// sameFileOrEmpty decides pairs that need no stream: the same inode, or
// two entries known to be empty
func sameFileOrEmpty(streams *storage.Streams, left, right *storage.Entry) (models.Verdict, bool) {
	if streams.SameFile(left, right) {
		return models.Equal("same file"), true
	}
	ls, lok := left.Size()
	rs, rok := right.Size()
	if lok && rok && ls == 0 && rs == 0 {
		return models.Equal("empty"), true
	}
	return models.Verdict{}, false
}

// sameFileOrSize adds the size shortcut of exact strategies: differing
// known sizes are Unequal. ok is false when content must be read.
func sameFileOrSize(streams *storage.Streams, left, right *storage.Entry) (models.Verdict, bool) {
	if v, ok := sameFileOrEmpty(streams, left, right); ok {
		return v, true
	}
	ls, lok := left.Size()
	rs, rok := right.Size()
	if lok && rok && ls != rs {
		return models.Unequal(models.ReasonSizeMismatch, "left=%d, right=%d", ls, rs), true
	}
	return models.Verdict{}, false
}

// acquirePair opens both sides, wrapping failures as an error verdict
func acquirePair(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) (*storage.Stream, *storage.Stream, *models.Verdict) {
	ls, rs, err := streams.AcquirePair(ctx, left, right)
	if err != nil {
		v := models.Failed(err)
		return nil, nil, &v
	}
	return ls, rs, nil
}
