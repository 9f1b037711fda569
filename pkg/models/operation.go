package models

import (
	"time"
)

// LeafMethod selects the fallback strategy for plain binary content
type LeafMethod string

const (
	// LeafBinary compares byte-by-byte and reports the first differing offset
	LeafBinary LeafMethod = "binary"
	// LeafSHA256 compares SHA-256 digests of both sides, hashed concurrently
	LeafSHA256 LeafMethod = "sha256"
	// LeafMD5 compares MD5 digests (faster than SHA-256, less secure)
	LeafMD5 LeafMethod = "md5"
	// LeafXXHash compares 64-bit xxHash digests, non-cryptographic and fastest
	LeafXXHash LeafMethod = "xxhash"
)

// BudgetPolicy defines what happens when a stream acquisition does not fit
// the resource budget
type BudgetPolicy string

const (
	// PolicyBlock waits for a released slot
	PolicyBlock BudgetPolicy = "block"
	// PolicyFail records an Error verdict at the node
	PolicyFail BudgetPolicy = "fail"
)

// CompareOperation represents one comparison run
type CompareOperation struct {
	ID        string
	LeftPath  string
	RightPath string

	IgnorePatterns []string
	LeafMethod     LeafMethod

	// Text normalizations
	IgnoreTrailingSpace bool
	BlotDates           bool

	// CompareMetadata compares archive member headers (mode, owner, link)
	CompareMetadata bool
	// IgnoreElfSections installs the normalizing ELF strategy when non-empty
	IgnoreElfSections []string
	// BuriedPaths treats the compared root paths embedded in content as equal
	BuriedPaths bool
	// BuildNormalizers masks volatile lines of generated build files
	BuildNormalizers bool

	// ExitASAP stops the run at the first difference
	ExitASAP bool

	MaxDepth       int // container nesting limit, 0 = unlimited
	MaxFailures    int // failing children named per aggregate, 0 = unlimited
	MaxWorkers     int
	MaxDescriptors int
	MaxMemory      int64
	BudgetPolicy   BudgetPolicy
	BufferSize     int
	BandwidthLimit int64 // bytes per second, 0 = unlimited

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Validate checks if the operation configuration is valid
func (op *CompareOperation) Validate() error {
	if op.LeftPath == "" {
		return &ValidationError{Field: "LeftPath", Message: "left path is required"}
	}
	if op.RightPath == "" {
		return &ValidationError{Field: "RightPath", Message: "right path is required"}
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	// A pair comparison holds one descriptor per side.
	if op.MaxDescriptors < 2 {
		return &ValidationError{Field: "MaxDescriptors", Message: "max descriptors must be at least 2"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.MaxMemory < 2*int64(op.BufferSize) {
		return &ValidationError{Field: "MaxMemory", Message: "max memory must hold at least two read buffers"}
	}
	if op.MaxDepth < 0 {
		return &ValidationError{Field: "MaxDepth", Message: "max depth cannot be negative"}
	}
	if op.MaxFailures < 0 {
		return &ValidationError{Field: "MaxFailures", Message: "max failures cannot be negative"}
	}
	switch op.LeafMethod {
	case LeafBinary, LeafSHA256, LeafMD5, LeafXXHash, "":
	default:
		return &ValidationError{Field: "LeafMethod", Message: "must be binary, sha256, md5 or xxhash"}
	}
	switch op.BudgetPolicy {
	case PolicyBlock, PolicyFail, "":
	default:
		return &ValidationError{Field: "BudgetPolicy", Message: "must be block or fail"}
	}
	return nil
}
