package compare

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// DigestStrategy compares content by hashing both sides concurrently. It
// cannot locate the first difference, only detect one.
type DigestStrategy struct {
	method     models.LeafMethod
	newHash    func() hash.Hash
	bufferPool *sync.Pool
}

// NewDigestStrategy creates a digest strategy for sha256, md5 or xxhash.
// Any other method falls back to sha256.
func NewDigestStrategy(method models.LeafMethod, bufferSize int) *DigestStrategy {
	if bufferSize < 4096 {
		bufferSize = 4096
	}

	var newHash func() hash.Hash
	switch method {
	case models.LeafMD5:
		newHash = md5.New
	case models.LeafXXHash:
		newHash = func() hash.Hash { return xxhash.New() }
	default:
		method = models.LeafSHA256
		newHash = sha256.New
	}

	return &DigestStrategy{
		method:  method,
		newHash: newHash,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// Name returns the strategy name
func (s *DigestStrategy) Name() string {
	return string(s.method)
}

// Compare hashes both entries and compares the digests
func (s *DigestStrategy) Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
	if v, ok := sameFileOrSize(streams, left, right); ok {
		return v
	}

	ls, rs, failed := acquirePair(ctx, streams, left, right)
	if failed != nil {
		return *failed
	}
	defer ls.Release()
	defer rs.Release()
	return s.compareReaders(ctx, left, right, ls, rs)
}

func (s *DigestStrategy) compareReaders(ctx context.Context, left, right *storage.Entry, lr, rr io.Reader) models.Verdict {
	var leftSum, rightSum string
	var leftErr, rightErr error

	var wg conc.WaitGroup
	wg.Go(func() { leftSum, leftErr = s.digest(ctx, left, lr) })
	wg.Go(func() { rightSum, rightErr = s.digest(ctx, right, rr) })
	wg.Wait()

	if err := multierr.Combine(leftErr, rightErr); err != nil {
		return models.Failed(err)
	}
	if leftSum != rightSum {
		return models.Unequal(models.ReasonDigestMismatch, "%s digests differ: %s vs %s", s.method, leftSum, rightSum)
	}
	return models.Equal(fmt.Sprintf("%s digests match", s.method))
}

// digest hashes a stream, checking for cancellation between reads
func (s *DigestStrategy) digest(ctx context.Context, e *storage.Entry, r io.Reader) (string, error) {
	hasher := s.newHash()

	bufPtr := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(bufPtr)
	buffer := *bufPtr

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := fill(r, buffer)
		hasher.Write(buffer[:n])
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", e.Path(), err)
		}
		if n < len(buffer) {
			return hex.EncodeToString(hasher.Sum(nil)), nil
		}
	}
}
