// Package engine walks two entry trees in lockstep and builds the result
// tree. Each pair is classified, compared by the strategy registered for
// its kind and, for composite kinds, expanded and recursed into.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sdejongh/semcmp/pkg/classify"
	"github.com/sdejongh/semcmp/pkg/compare"
	"github.com/sdejongh/semcmp/pkg/logging"
	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/ratelimit"
	"github.com/sdejongh/semcmp/pkg/result"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// Config holds the walk settings
type Config struct {
	// MaxDepth limits container nesting, 0 = unlimited. Containers at the
	// limit are compared with the fallback strategy instead of expanded.
	MaxDepth int
	// MaxFailures caps the failing children named per aggregate
	MaxFailures int
	// MaxWorkers bounds concurrently compared siblings
	MaxWorkers int
	// IgnorePatterns excludes matching names on both sides
	IgnorePatterns []string
	// CompareMetadata compares archive member headers
	CompareMetadata bool
	// ExitASAP stops the walk at the first difference. Pairs not yet
	// compared are recorded as ErrStoppedEarly errors.
	ExitASAP bool
}

// Observer is called once for every finished node with its result path.
// It may be called from several goroutines at once.
type Observer func(path string, node *result.Node)

// Engine orchestrates a comparison run
type Engine struct {
	streams    *storage.Streams
	classifier *classify.Classifier
	registry   *compare.Registry
	logger     logging.Logger
	config     Config
	ignore     *Matcher
	slots      *slots
	observer   Observer

	stop    context.CancelCauseFunc
	stopped atomic.Bool
}

// NewEngine creates a new comparison engine
func NewEngine(
	streams *storage.Streams,
	registry *compare.Registry,
	logger logging.Logger,
	config Config,
) (*Engine, error) {
	ignore, err := NewMatcher(config.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Engine{
		streams:    streams,
		classifier: classify.New(streams),
		registry:   registry,
		logger:     logger,
		config:     config,
		ignore:     ignore,
		slots:      newSlots(config.MaxWorkers),
	}, nil
}

// FromOperation builds the budget, the stream layer and the default
// strategy registry described by op and returns an engine over them
func FromOperation(op *models.CompareOperation, logger logging.Logger) (*Engine, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	budget := storage.NewBudget(int64(op.MaxDescriptors), op.MaxMemory, op.BudgetPolicy)
	streams := storage.NewStreams(storage.NewLocal(), budget, ratelimit.NewLimiter(op.BandwidthLimit), op.BufferSize)
	registry := compare.NewDefaultRegistry(compare.Options{
		LeafMethod:          op.LeafMethod,
		BufferSize:          op.BufferSize,
		IgnoreTrailingSpace: op.IgnoreTrailingSpace,
		BlotDates:           op.BlotDates,
		IgnoreElfSections:   op.IgnoreElfSections,
		BuriedPaths:         op.BuriedPaths,
		BuildNormalizers:    op.BuildNormalizers,
	})

	return NewEngine(streams, registry, logger, Config{
		MaxDepth:        op.MaxDepth,
		MaxFailures:     op.MaxFailures,
		MaxWorkers:      op.MaxWorkers,
		IgnorePatterns:  op.IgnorePatterns,
		CompareMetadata: op.CompareMetadata,
		ExitASAP:        op.ExitASAP,
	})
}

// SetObserver installs the per-node callback. It must be called before
// Compare.
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Streams returns the stream layer the engine reads through
func (e *Engine) Streams() *storage.Streams {
	return e.streams
}

// Compare compares two roots and returns the result tree. The error is
// non-nil only when a root cannot be inspected; every other failure is
// recorded as an error verdict in the tree. When ctx is cancelled the
// walk stops starting new pairs and the unfinished ones are recorded as
// errors.
func (e *Engine) Compare(ctx context.Context, leftPath, rightPath string) (*result.Node, error) {
	left, err := e.streams.Root(leftPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access left root: %w", err)
	}
	right, err := e.streams.Root(rightPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access right root: %w", err)
	}

	e.logger.Info(ctx, "comparison started", logging.Fields{
		"left":   leftPath,
		"right":  rightPath,
		"config": e.config.String(),
	})
	start := time.Now()

	e.stopped.Store(false)
	if e.config.ExitASAP {
		var cancel context.CancelCauseFunc
		ctx, cancel = context.WithCancelCause(ctx)
		defer cancel(nil)
		e.stop = cancel
	}

	root := e.comparePair(ctx, result.RootPath, "", left, right)

	if descriptors, memory := e.streams.Budget().InUse(); descriptors != 0 || memory != 0 {
		e.logger.Error(ctx, "stream budget not fully released", models.ErrBudgetExceeded, logging.Fields{
			"descriptors": descriptors,
			"memory":      memory,
		})
	}

	e.logger.Info(ctx, "comparison finished", logging.Fields{
		"verdict":  string(root.Verdict().Outcome),
		"duration": time.Since(start).String(),
	})
	return root, nil
}

// StoppedEarly reports whether the last Compare stopped at its first
// difference
func (e *Engine) StoppedEarly() bool {
	return e.stopped.Load()
}

// Stats returns the node counters of root together with the stream layer
// instrumentation
func (e *Engine) Stats(root *result.Node) models.Statistics {
	s := root.Stats()
	s.PeakDescriptors, s.PeakMemory = e.streams.Budget().Peak()
	s.BytesRead = e.streams.BytesRead()
	return s
}
