package compare

import (
	"bytes"
	"context"
	"debug/elf"
	"fmt"
	"io"
	"slices"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// ElfStrategy compares ELF objects section by section, skipping the named
// sections (build IDs, debug links, comment sections and the like). Bytes
// outside sections and section addresses are not compared.
type ElfStrategy struct {
	ignore   []string
	fallback Strategy
}

// NewElfStrategy creates an ELF strategy. Objects whose size is unknown
// before reading, and archive members too large to buffer within the
// memory budget, are handed to fallback.
func NewElfStrategy(ignoreSections []string, fallback Strategy) *ElfStrategy {
	return &ElfStrategy{ignore: slices.Clone(ignoreSections), fallback: fallback}
}

// Name returns the strategy name
func (s *ElfStrategy) Name() string { return "elf" }

// Compare compares headers and the contents of every kept section
func (s *ElfStrategy) Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
	if streams.SameFile(left, right) {
		return models.Equal("same file")
	}
	lsize, lok := left.Size()
	rsize, rok := right.Size()
	if !lok || !rok {
		return s.fallback.Compare(ctx, streams, left, right)
	}
	if lsize == 0 && rsize == 0 {
		return models.Equal("empty")
	}

	// members have no random access and are buffered whole
	lbuf, rbuf := bufferedSize(left, lsize), bufferedSize(right, rsize)
	if streams.PairMemory(left, right, lbuf, rbuf) > streams.Budget().MaxMemory() {
		return s.fallback.Compare(ctx, streams, left, right)
	}

	ls, rs, err := streams.AcquirePairBuffered(ctx, left, right, lbuf, rbuf)
	if err != nil {
		return models.Failed(err)
	}
	defer ls.Release()
	defer rs.Release()

	lf, err := s.open(ls)
	if err != nil {
		return models.Failed(err)
	}
	rf, err := s.open(rs)
	if err != nil {
		return models.Failed(err)
	}

	if lf.FileHeader != rf.FileHeader {
		return models.Unequal(models.ReasonSectionMismatch, "ELF headers differ")
	}

	lsecs, rsecs := s.kept(lf), s.kept(rf)
	if len(lsecs) != len(rsecs) {
		return models.Unequal(models.ReasonSectionMismatch, "%d vs %d sections", len(lsecs), len(rsecs))
	}
	for i := range lsecs {
		a, b := lsecs[i], rsecs[i]
		if a.Name != b.Name || a.Type != b.Type || a.Flags != b.Flags {
			return models.Unequal(models.ReasonSectionMismatch, "section %d is %s on the left and %s on the right", i, a.Name, b.Name)
		}
		if a.Type == elf.SHT_NOBITS {
			if a.Size != b.Size {
				return models.Unequal(models.ReasonSectionMismatch, "section %s size %d vs %d", a.Name, a.Size, b.Size)
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return models.Failed(err)
		}
		offset, equal, err := sameContent(a.Open(), b.Open())
		if err != nil {
			return models.Failed(&models.StrategyError{Strategy: s.Name(), Path: left.Path(), Err: err})
		}
		if !equal {
			return models.Unequal(models.ReasonSectionMismatch, "section %s differs at offset %d", a.Name, offset)
		}
	}
	return models.Equal(fmt.Sprintf("%d sections match", len(lsecs)))
}

func (s *ElfStrategy) kept(f *elf.File) []*elf.Section {
	var out []*elf.Section
	for _, sec := range f.Sections {
		if sec.Type == elf.SHT_NULL || slices.Contains(s.ignore, sec.Name) {
			continue
		}
		out = append(out, sec)
	}
	return out
}

func bufferedSize(e *storage.Entry, size int64) int64 {
	if e.IsMember() {
		return size
	}
	return 0
}

// open parses the object. Archive members are read into memory that was
// reserved together with the stream.
func (s *ElfStrategy) open(st *storage.Stream) (*elf.File, error) {
	e := st.Entry()
	if ra, _, ok := st.ReaderAt(); ok {
		f, err := elf.NewFile(ra)
		if err != nil {
			return nil, &models.StrategyError{Strategy: s.Name(), Path: e.Path(), Err: err}
		}
		return f, nil
	}

	size, _ := e.Size()
	data := make([]byte, size)
	if _, err := io.ReadFull(st, data); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.Path(), err)
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &models.StrategyError{Strategy: s.Name(), Path: e.Path(), Err: err}
	}
	return f, nil
}

// sameContent compares two readers and returns the first differing offset
func sameContent(a, b io.Reader) (int64, bool, error) {
	bufA := make([]byte, 32*1024)
	bufB := make([]byte, 32*1024)
	var offset int64
	for {
		na, err := fill(a, bufA)
		if err != nil {
			return 0, false, err
		}
		nb, err := fill(b, bufB)
		if err != nil {
			return 0, false, err
		}
		n := min(na, nb)
		for i := 0; i < n; i++ {
			if bufA[i] != bufB[i] {
				return offset + int64(i), false, nil
			}
		}
		offset += int64(n)
		if na != nb {
			return offset, false, nil
		}
		if na < len(bufA) {
			return offset, true, nil
		}
	}
}
