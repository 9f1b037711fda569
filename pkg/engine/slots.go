package engine

import (
	"golang.org/x/sync/semaphore"
)

// slots bounds the goroutines comparing siblings. The walking goroutine
// counts as one worker, so n workers leave n-1 slots.
type slots struct {
	sem *semaphore.Weighted
}

func newSlots(workers int) *slots {
	if workers <= 1 {
		return &slots{}
	}
	return &slots{sem: semaphore.NewWeighted(int64(workers - 1))}
}

// tryAcquire claims a slot without waiting
func (s *slots) tryAcquire() bool {
	return s.sem != nil && s.sem.TryAcquire(1)
}

func (s *slots) release() {
	s.sem.Release(1)
}
