package compare

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// ByteStrategy compares content byte-by-byte and reports the first
// differing offset. It is the default leaf strategy.
type ByteStrategy struct {
	bufferSize int
	bufferPool *sync.Pool
}

// NewByteStrategy creates a new byte-by-byte strategy
func NewByteStrategy(bufferSize int) *ByteStrategy {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &ByteStrategy{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// Name returns the strategy name
func (s *ByteStrategy) Name() string {
	return "binary"
}

// Compare compares both entries byte-by-byte
func (s *ByteStrategy) Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
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

func (s *ByteStrategy) compareReaders(ctx context.Context, left, right *storage.Entry, lr, rr io.Reader) models.Verdict {
	leftBufPtr := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(leftBufPtr)
	leftBuf := *leftBufPtr

	rightBufPtr := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(rightBufPtr)
	rightBuf := *rightBufPtr

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return models.Failed(err)
		}

		// fill keeps both sides aligned whatever the layers return per call
		leftN, err := fill(lr, leftBuf)
		if err != nil {
			return models.Failed(fmt.Errorf("failed to read %s: %w", left.Path(), err))
		}
		rightN, err := fill(rr, rightBuf)
		if err != nil {
			return models.Failed(fmt.Errorf("failed to read %s: %w", right.Path(), err))
		}

		n := min(leftN, rightN)
		if !bytes.Equal(leftBuf[:n], rightBuf[:n]) {
			for i := 0; i < n; i++ {
				if leftBuf[i] != rightBuf[i] {
					return models.Unequal(models.ReasonContentAtOffset,
						"binary content differs at byte offset %d", offset+int64(i))
				}
			}
		}
		offset += int64(n)

		switch {
		case leftN < rightN:
			return models.Unequal(models.ReasonSizeMismatch, "left ended at %d but right continues", offset)
		case rightN < leftN:
			return models.Unequal(models.ReasonSizeMismatch, "right ended at %d but left continues", offset)
		case leftN < len(leftBuf):
			return models.Equal(fmt.Sprintf("binary content matches (%d bytes)", offset))
		}
	}
}

// fill reads until buf is full or the stream ends. Reaching the end is
// not an error; a short count reports it.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
