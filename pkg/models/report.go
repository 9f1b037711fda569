package models

import (
	"time"
)

// Report summarizes a finished comparison run
type Report struct {
	// Operation details
	OperationID string
	LeftPath    string
	RightPath   string

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stats  Statistics
	Status Status
}

// Statistics holds per-run counters
type Statistics struct {
	Compared int // every node in the result tree
	Equal    int
	Unequal  int
	Errors   int

	// Leaf outcomes only, useful when a single leaf drags every ancestor
	// into an aggregate difference
	LeafUnequal int
	LeafErrors  int

	// Stream layer instrumentation
	PeakDescriptors int64
	PeakMemory      int64
	BytesRead       int64
}

// Status represents the overall result
type Status string

const (
	// StatusEqual indicates both trees are equivalent
	StatusEqual Status = "equal"
	// StatusUnequal indicates confirmed differences and no errors
	StatusUnequal Status = "unequal"
	// StatusError indicates at least one node was inconclusive
	StatusError Status = "error"
	// StatusCancelled indicates the walk was aborted
	StatusCancelled Status = "cancelled"
)

// ExitCode returns the process exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusEqual:
		return 0
	case StatusUnequal:
		return 1
	case StatusError:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
