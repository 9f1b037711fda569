package compare

import (
	"slices"
	"sync"

	"github.com/sdejongh/semcmp/pkg/archive"
	"github.com/sdejongh/semcmp/pkg/models"
)

// Registry maps kinds to strategies. Lookups of unregistered kinds return
// the fallback strategy.
type Registry struct {
	mu         sync.RWMutex
	strategies map[models.Kind]Strategy
	fallback   Strategy
}

// NewRegistry creates an empty registry with the given fallback
func NewRegistry(fallback Strategy) *Registry {
	return &Registry{
		strategies: make(map[models.Kind]Strategy),
		fallback:   fallback,
	}
}

// Register installs s for kind, replacing any previous registration
func (r *Registry) Register(kind models.Kind, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[kind] = s
}

// Lookup returns the strategy for kind, or the fallback
func (r *Registry) Lookup(kind models.Kind) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[kind]; ok {
		return s
	}
	return r.fallback
}

// Fallback returns the strategy used for unregistered kinds and for
// containers beyond the nesting limit
func (r *Registry) Fallback() Strategy {
	return r.fallback
}

// Kinds returns the registered kinds, sorted
func (r *Registry) Kinds() []models.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]models.Kind, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Options selects the built-in strategies
type Options struct {
	LeafMethod models.LeafMethod
	BufferSize int

	IgnoreTrailingSpace bool
	BlotDates           bool

	// IgnoreElfSections installs the normalizing ELF strategy. When empty
	// ELF objects are compared as exact bytes.
	IgnoreElfSections []string

	// BuriedPaths wraps the content strategies in BuriedPathStrategy
	BuriedPaths bool
	// BuildNormalizers compares text through the DefaultGenerators
	BuildNormalizers bool
}

// NewLeafStrategy returns the content strategy for a leaf method
func NewLeafStrategy(method models.LeafMethod, bufferSize int) Strategy {
	switch method {
	case models.LeafSHA256, models.LeafMD5, models.LeafXXHash:
		return NewDigestStrategy(method, bufferSize)
	default:
		return NewByteStrategy(bufferSize)
	}
}

// NewDefaultRegistry creates a registry holding the built-in strategies
func NewDefaultRegistry(opts Options) *Registry {
	content := func(s Strategy) Strategy {
		if opts.BuriedPaths {
			return NewBuriedPathStrategy(s, opts.BufferSize)
		}
		return s
	}

	exactLeaf := NewLeafStrategy(opts.LeafMethod, opts.BufferSize)
	leaf := content(exactLeaf)
	r := NewRegistry(leaf)

	text := NewTextStrategy(TextOptions{
		IgnoreTrailingSpace: opts.IgnoreTrailingSpace,
		BlotDates:           opts.BlotDates,
	}, opts.BufferSize)
	var textStrategy Strategy = text
	if opts.BuildNormalizers {
		textStrategy = NewGeneratedTextStrategy(text, DefaultGenerators)
	}

	r.Register(models.KindRegularFile, leaf)
	r.Register(models.KindUnknownBinary, leaf)
	r.Register(models.KindText, content(textStrategy))
	r.Register(models.KindDirectory, DirectoryStrategy{})
	r.Register(models.KindSymlink, SymlinkStrategy{})
	r.Register(models.KindSpecial, SpecialStrategy{})

	for _, kind := range []models.Kind{models.KindTar, models.KindCpio, models.KindAr} {
		format, _ := archive.FormatFor(kind)
		r.Register(kind, NewArchiveStrategy(format))
	}
	for _, kind := range []models.Kind{models.KindGzip, models.KindBzip2, models.KindXz, models.KindZstd} {
		codec, _ := archive.CodecFor(kind)
		r.Register(kind, NewCompressedStreamStrategy(codec))
	}

	if len(opts.IgnoreElfSections) > 0 {
		r.Register(models.KindElf, content(NewElfStrategy(opts.IgnoreElfSections, exactLeaf)))
	}
	return r
}
