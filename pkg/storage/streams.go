package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/sdejongh/semcmp/pkg/archive"
	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/ratelimit"
)

// DefaultBufferSize is the read buffer attached to every stream
const DefaultBufferSize = 64 * 1024

// Streams opens entries under a shared Budget. Every open stream holds one
// descriptor and its buffer plus decoder memory until released.
type Streams struct {
	local      *Local
	budget     *Budget
	limiter    *ratelimit.Limiter
	bufferSize int

	bytesRead atomic.Int64
}

// NewStreams creates a stream layer over a backend and budget. A nil
// limiter disables bandwidth limiting.
func NewStreams(local *Local, budget *Budget, limiter *ratelimit.Limiter, bufferSize int) *Streams {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Streams{
		local:      local,
		budget:     budget,
		limiter:    limiter,
		bufferSize: bufferSize,
	}
}

// Budget returns the shared resource budget
func (s *Streams) Budget() *Budget { return s.budget }

// BufferSize returns the per-stream read buffer size
func (s *Streams) BufferSize() int { return s.bufferSize }

// BytesRead returns the number of bytes read from the filesystem so far
func (s *Streams) BytesRead() int64 { return s.bytesRead.Load() }

// Root creates the entry for a compared root. It fails when the path
// cannot be inspected.
func (s *Streams) Root(path string) (*Entry, error) {
	abs, err := Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := s.local.Lstat(abs)
	if err != nil {
		return nil, err
	}
	return newFileEntry(abs, info.Name(), path, "", info), nil
}

// List returns the children of a filesystem directory, sorted by name.
// The listing holds one descriptor while it runs.
func (s *Streams) List(ctx context.Context, e *Entry) ([]*Entry, error) {
	if e.IsMember() {
		return nil, fmt.Errorf("cannot list %s: not a filesystem directory", e.Path())
	}

	res, err := s.budget.Reserve(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	defer res.Release()

	infos, err := s.local.ReadDir(e.fsPath)
	if err != nil {
		return nil, err
	}

	children := make([]*Entry, 0, len(infos))
	for _, info := range infos {
		children = append(children, e.child(info))
	}
	return children, nil
}

// Readlink returns the link target of a symlink entry, or of a tar hard link
func (s *Streams) Readlink(e *Entry) (string, error) {
	if m := e.Member(); m != nil {
		return m.LinkTarget(), nil
	}
	return s.local.Readlink(e.fsPath)
}

// SameFile reports whether two filesystem entries are the same inode
func (s *Streams) SameFile(a, b *Entry) bool {
	if a.IsMember() || b.IsMember() {
		return false
	}
	return s.local.SameFile(a.fsPath, b.fsPath)
}

// Memory returns the bytes reserved for an open stream of e
func (s *Streams) Memory(e *Entry) int64 {
	return int64(s.bufferSize) + e.window()
}

// Acquire opens e under the budget. The caller must Release the stream.
func (s *Streams) Acquire(ctx context.Context, e *Entry) (*Stream, error) {
	res, err := s.budget.Reserve(ctx, 1, s.Memory(e))
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", e.Path(), err)
	}

	st, err := s.open(ctx, e, res)
	if err != nil {
		res.Release()
		return nil, err
	}
	return st, nil
}

// AcquirePair opens both entries under a single reservation, so two
// comparisons waiting on the budget can never each hold half a pair.
func (s *Streams) AcquirePair(ctx context.Context, a, b *Entry) (*Stream, *Stream, error) {
	return s.AcquirePairBuffered(ctx, a, b, 0, 0)
}

// PairMemory returns the bytes AcquirePairBuffered reserves for a and b
func (s *Streams) PairMemory(a, b *Entry, extraA, extraB int64) int64 {
	return s.Memory(a) + extraA + s.Memory(b) + extraB
}

// AcquirePairBuffered is AcquirePair with extra memory reserved alongside
// each stream, for callers that buffer an entry whole. The extra bytes are
// released with the stream.
func (s *Streams) AcquirePairBuffered(ctx context.Context, a, b *Entry, extraA, extraB int64) (*Stream, *Stream, error) {
	memB := s.Memory(b) + extraB
	res, err := s.budget.Reserve(ctx, 2, s.PairMemory(a, b, extraA, extraB))
	if err != nil {
		return nil, nil, fmt.Errorf("acquire %s and %s: %w", a.Path(), b.Path(), err)
	}

	resA := res
	resB := res.split(1, memB)

	sa, errA := s.open(ctx, a, resA)
	var sb *Stream
	var errB error
	if errA == nil {
		sb, errB = s.open(ctx, b, resB)
	}
	if errA != nil || errB != nil {
		if sa != nil {
			sa.Release()
		}
		resA.Release()
		resB.Release()
		return nil, nil, multierr.Combine(errA, errB)
	}
	return sa, sb, nil
}

// open replays the layer chain of e from the outermost file
func (s *Streams) open(ctx context.Context, e *Entry, res *Reservation) (*Stream, error) {
	file, err := s.local.Open(e.fsPath)
	if err != nil {
		return nil, err
	}

	st := &Stream{entry: e, file: file, res: res}
	st.closers = append(st.closers, file)

	var cur io.Reader = &countingReader{r: file, n: &s.bytesRead}
	cur = ratelimit.NewReader(ctx, cur, s.limiter)

	for i, l := range e.layers {
		switch {
		case l.codec != nil:
			rc, err := l.codec.NewReader(cur)
			if err != nil {
				st.Release()
				return nil, &models.ExpansionError{Path: e.Path(), Kind: l.codec.Kind(), Err: err}
			}
			st.closers = append(st.closers, rc)
			cur = rc

		case l.format != nil:
			mr, err := l.format.NewReader(cur)
			if err != nil {
				st.Release()
				return nil, &models.ExpansionError{Path: e.Path(), Kind: l.format.Kind(), Err: err}
			}
			if err := seekMember(mr, l); err != nil {
				st.Release()
				return nil, &models.ExpansionError{
					Path: e.Path(),
					Kind: l.format.Kind(),
					Err:  fmt.Errorf("layer %d: %w", i, err),
				}
			}
			cur = mr
		}
	}

	st.Reader = bufio.NewReaderSize(cur, s.bufferSize)
	return st, nil
}

var errMemberMoved = errors.New("member no longer at its recorded position")

// seekMember advances mr to the member recorded in l
func seekMember(mr archive.MemberReader, l layer) error {
	for i := 0; ; i++ {
		m, err := mr.Next()
		if err == io.EOF {
			return errMemberMoved
		}
		if err != nil {
			return err
		}
		if i == l.index {
			if m.Name != l.name || m.Size != l.size {
				return errMemberMoved
			}
			return nil
		}
	}
}

// Stream is an open, budgeted entry. Release is idempotent.
type Stream struct {
	io.Reader

	entry   *Entry
	file    File
	closers []io.Closer
	res     *Reservation
	once    sync.Once
	err     error
}

// Entry returns the entry the stream reads
func (st *Stream) Entry() *Entry { return st.entry }

// ReaderAt returns random access to the underlying file when the entry is
// a plain filesystem file
func (st *Stream) ReaderAt() (io.ReaderAt, int64, bool) {
	if st.entry.IsMember() || st.file == nil {
		return nil, 0, false
	}
	size, ok := st.entry.Size()
	if !ok {
		return nil, 0, false
	}
	return st.file, size, true
}

// Release closes every layer and returns the reservation to the budget
func (st *Stream) Release() error {
	st.once.Do(func() {
		for i := len(st.closers) - 1; i >= 0; i-- {
			st.err = multierr.Append(st.err, st.closers[i].Close())
		}
		st.res.Release()
	})
	return st.err
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
