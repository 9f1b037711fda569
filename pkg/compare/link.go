package compare

import (
	"context"

	"go.uber.org/multierr"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// SymlinkStrategy compares link targets as strings and never follows them
type SymlinkStrategy struct{}

// Name returns the strategy name
func (SymlinkStrategy) Name() string { return "symlink" }

// Compare compares the link targets
func (SymlinkStrategy) Compare(_ context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
	lt, lerr := streams.Readlink(left)
	rt, rerr := streams.Readlink(right)
	if err := multierr.Combine(lerr, rerr); err != nil {
		return models.Failed(err)
	}
	if lt != rt {
		return models.Unequal(models.ReasonLinkTarget, "%q vs %q", lt, rt)
	}
	return models.Equal("")
}

// SpecialStrategy compares devices, fifos and sockets by file type. Such
// entries are never opened.
type SpecialStrategy struct{}

// Name returns the strategy name
func (SpecialStrategy) Name() string { return "special" }

// Compare compares the file type bits
func (SpecialStrategy) Compare(_ context.Context, _ *storage.Streams, left, right *storage.Entry) models.Verdict {
	lt, rt := left.Mode().Type(), right.Mode().Type()
	if lt != rt {
		return models.Unequal(models.ReasonTypeMismatch, "%s vs %s", lt, rt)
	}
	return models.Equal("")
}
