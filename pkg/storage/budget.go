package storage

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/sdejongh/semcmp/pkg/models"
)

// Budget bounds the number of simultaneously open streams and the memory
// their buffers and decoders hold. One Budget is shared by every branch of
// a comparison run.
type Budget struct {
	maxDescriptors int64
	maxMemory      int64
	policy         models.BudgetPolicy

	descriptors *semaphore.Weighted
	memory      *semaphore.Weighted

	openDescriptors atomic.Int64
	openMemory      atomic.Int64
	peakDescriptors atomic.Int64
	peakMemory      atomic.Int64
}

// NewBudget creates a budget with the given ceilings
func NewBudget(maxDescriptors, maxMemory int64, policy models.BudgetPolicy) *Budget {
	if policy == "" {
		policy = models.PolicyBlock
	}
	return &Budget{
		maxDescriptors: maxDescriptors,
		maxMemory:      maxMemory,
		policy:         policy,
		descriptors:    semaphore.NewWeighted(maxDescriptors),
		memory:         semaphore.NewWeighted(maxMemory),
	}
}

// Reservation is a granted share of the budget
type Reservation struct {
	budget      *Budget
	descriptors int64
	memory      int64
	released    atomic.Bool
}

// Release returns the reservation to the budget. Calling it more than once
// is a no-op.
func (r *Reservation) Release() {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return
	}
	b := r.budget
	b.openDescriptors.Add(-r.descriptors)
	b.openMemory.Add(-r.memory)
	b.memory.Release(r.memory)
	b.descriptors.Release(r.descriptors)
}

// split moves part of the reservation into a new one that is released
// independently
func (r *Reservation) split(descriptors, memory int64) *Reservation {
	r.descriptors -= descriptors
	r.memory -= memory
	return &Reservation{budget: r.budget, descriptors: descriptors, memory: memory}
}

// Reserve grants descriptors and memory together. Under the blocking policy
// it waits until both fit or ctx is done; under the fail policy it returns
// ErrBudgetExceeded at once. A request larger than the whole budget always
// fails immediately.
func (b *Budget) Reserve(ctx context.Context, descriptors, memory int64) (*Reservation, error) {
	if descriptors > b.maxDescriptors || memory > b.maxMemory {
		return nil, fmt.Errorf("%w: requested %d descriptors and %d bytes, ceiling is %d descriptors and %d bytes",
			models.ErrBudgetExceeded, descriptors, memory, b.maxDescriptors, b.maxMemory)
	}

	if b.policy == models.PolicyFail {
		if !b.descriptors.TryAcquire(descriptors) {
			return nil, fmt.Errorf("%w: %d descriptors in use, %d requested",
				models.ErrBudgetExceeded, b.openDescriptors.Load(), descriptors)
		}
		if !b.memory.TryAcquire(memory) {
			b.descriptors.Release(descriptors)
			return nil, fmt.Errorf("%w: %d bytes in use, %d requested",
				models.ErrBudgetExceeded, b.openMemory.Load(), memory)
		}
	} else {
		if err := b.descriptors.Acquire(ctx, descriptors); err != nil {
			return nil, err
		}
		if err := b.memory.Acquire(ctx, memory); err != nil {
			b.descriptors.Release(descriptors)
			return nil, err
		}
	}

	raisePeak(&b.peakDescriptors, b.openDescriptors.Add(descriptors))
	raisePeak(&b.peakMemory, b.openMemory.Add(memory))

	return &Reservation{budget: b, descriptors: descriptors, memory: memory}, nil
}

// MaxDescriptors returns the descriptor ceiling
func (b *Budget) MaxDescriptors() int64 { return b.maxDescriptors }

// MaxMemory returns the memory ceiling in bytes
func (b *Budget) MaxMemory() int64 { return b.maxMemory }

// InUse returns the descriptors and bytes currently reserved
func (b *Budget) InUse() (descriptors, memory int64) {
	return b.openDescriptors.Load(), b.openMemory.Load()
}

// Peak returns the highest number of descriptors and bytes reserved at
// the same time since the budget was created
func (b *Budget) Peak() (descriptors, memory int64) {
	return b.peakDescriptors.Load(), b.peakMemory.Load()
}

func raisePeak(peak *atomic.Int64, v int64) {
	for {
		cur := peak.Load()
		if v <= cur || peak.CompareAndSwap(cur, v) {
			return
		}
	}
}
