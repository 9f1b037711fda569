package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/sdejongh/semcmp/pkg/classify"
	"github.com/sdejongh/semcmp/pkg/compare"
	"github.com/sdejongh/semcmp/pkg/logging"
	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/result"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// comparePair classifies, compares and, for composite kinds, expands one
// pair. p is the pair's result path, name its name within the parent.
func (e *Engine) comparePair(ctx context.Context, p, name string, left, right *storage.Entry) *result.Node {
	if ctx.Err() != nil {
		return e.finish(ctx, p, result.NewLeaf(name, "", "", models.Failed(context.Cause(ctx))))
	}

	lk, lerr := e.classifier.Classify(ctx, left)
	rk, rerr := e.classifier.Classify(ctx, right)
	if err := multierr.Combine(lerr, rerr); err != nil {
		return e.finish(ctx, p, result.NewLeaf(name, lk, rk, models.Failed(err)))
	}
	if lk != rk {
		v := models.Unequal(models.ReasonTypeMismatch, "%s vs %s", lk, rk)
		return e.finish(ctx, p, result.NewLeaf(name, lk, rk, v))
	}

	own := models.Equal("")
	if e.config.CompareMetadata {
		own = compareMetadata(left, right)
	}

	strategy := e.registry.Lookup(lk)
	if exp, ok := strategy.(compare.Expander); ok {
		if e.expandable(lk, left, right) {
			return e.finish(ctx, p, e.compareComposite(ctx, p, name, lk, own, exp, left, right))
		}
		strategy = e.registry.Fallback()
	}

	v := strategy.Compare(ctx, e.streams, left, right)
	if v.IsEqual() && !own.IsEqual() {
		v = own
	}
	return e.finish(ctx, p, result.NewLeaf(name, lk, rk, v))
}

// expandable reports whether a pair of composite kind is recursed into.
// Directories always are, containers only below the nesting limit.
func (e *Engine) expandable(kind models.Kind, left, right *storage.Entry) bool {
	if e.config.MaxDepth == 0 || !kind.IsContainer() {
		return true
	}
	return max(left.Depth(), right.Depth()) < e.config.MaxDepth
}

func (e *Engine) compareComposite(
	ctx context.Context,
	p, name string,
	kind models.Kind,
	own models.Verdict,
	exp compare.Expander,
	left, right *storage.Entry,
) *result.Node {
	lc, lerr := exp.Expand(ctx, e.streams, left)
	rc, rerr := exp.Expand(ctx, e.streams, right)
	if err := multierr.Combine(lerr, rerr); err != nil {
		return result.NewLeaf(name, kind, kind, models.Failed(err))
	}

	// The container itself, e.g. a directory's own entry. Built-in
	// expanders judge nothing here.
	if v := exp.Compare(ctx, e.streams, left, right); !v.IsEqual() && own.IsEqual() {
		own = v
	}

	children := e.compareChildren(ctx, p, e.index(lc), e.index(rc))
	return result.NewComposite(name, kind, own, children, e.config.MaxFailures)
}

// index maps children by name. Ignored names are dropped and the last of
// several children sharing a name wins.
func (e *Engine) index(entries []*storage.Entry) map[string]*storage.Entry {
	m := make(map[string]*storage.Entry, len(entries))
	for _, c := range entries {
		if e.ignore.Match(c.RelPath()) {
			continue
		}
		m[c.Name()] = c
	}
	return m
}

// compareChildren compares the union of both name sets. Siblings run on
// a free worker slot or inline when none is available, so a walk never
// waits on itself.
func (e *Engine) compareChildren(ctx context.Context, parent string, left, right map[string]*storage.Entry) []*result.Node {
	names := make([]string, 0, len(left)+len(right))
	for n := range left {
		names = append(names, n)
	}
	for n := range right {
		if _, ok := left[n]; !ok {
			names = append(names, n)
		}
	}
	slices.Sort(names)

	nodes := make([]*result.Node, len(names))
	var wg conc.WaitGroup
	for i, n := range names {
		p := childPath(parent, n)
		l, r := left[n], right[n]

		switch {
		case ctx.Err() != nil:
			nodes[i] = e.finish(ctx, p, result.NewLeaf(n, "", "", models.Failed(context.Cause(ctx))))
		case l == nil:
			v := models.Unequal(models.ReasonMissingOnLeft, "only on right: %s", r.Path())
			nodes[i] = e.finish(ctx, p, result.NewLeaf(n, "", e.kindHint(r), v))
		case r == nil:
			v := models.Unequal(models.ReasonMissingOnRight, "only on left: %s", l.Path())
			nodes[i] = e.finish(ctx, p, result.NewLeaf(n, e.kindHint(l), "", v))
		default:
			run := func() { nodes[i] = e.comparePair(ctx, p, n, l, r) }
			if e.slots.tryAcquire() {
				wg.Go(func() {
					defer e.slots.release()
					run()
				})
			} else {
				run()
			}
		}
	}
	wg.Wait()
	return nodes
}

// kindHint reports the kind of a one-sided entry when it is known without
// opening it
func (e *Engine) kindHint(entry *storage.Entry) models.Kind {
	if k, ok := entry.Kind(); ok {
		return k
	}
	if k, ok := classify.FromMetadata(entry); ok {
		return k
	}
	return ""
}

// finish reports a completed node to the log and the observer
func (e *Engine) finish(ctx context.Context, p string, node *result.Node) *result.Node {
	v := node.Verdict()
	fields := logging.Fields{
		"path": p,
		"kind": string(node.LeftKind()),
	}

	switch v.Outcome {
	case models.OutcomeEqual:
		e.logger.Debug(ctx, "equal", fields)
	case models.OutcomeUnequal:
		// Aggregates are implied by their children.
		if v.Reason != models.ReasonAggregate {
			fields["reason"] = string(v.Reason)
			fields["detail"] = v.Detail
			e.logger.Warn(ctx, "difference", fields)
			e.stopAtFirstDifference(ctx, p)
		}
	case models.OutcomeError:
		e.logger.Error(ctx, "comparison failed", v.Err, fields)
	}

	if e.observer != nil {
		e.observer(p, node)
	}
	return node
}

func (e *Engine) stopAtFirstDifference(ctx context.Context, p string) {
	if e.stop == nil || !e.stopped.CompareAndSwap(false, true) {
		return
	}
	e.logger.Info(ctx, "stopping at first difference", logging.Fields{"path": p})
	e.stop(models.ErrStoppedEarly)
}

func childPath(parent, name string) string {
	if parent == result.RootPath {
		return name
	}
	return parent + "/" + name
}

// String returns a short description for logs
func (c Config) String() string {
	return fmt.Sprintf("depth=%d workers=%d ignore=%d metadata=%t exit-asap=%t",
		c.MaxDepth, c.MaxWorkers, len(c.IgnorePatterns), c.CompareMetadata, c.ExitASAP)
}
