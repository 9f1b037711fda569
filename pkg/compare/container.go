package compare

import (
	"context"
	"io"

	"github.com/sdejongh/semcmp/pkg/archive"
	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// DirectoryStrategy expands filesystem directories. Directory members of
// an archive carry no content; their contents are sibling members.
type DirectoryStrategy struct{}

// Name returns the strategy name
func (DirectoryStrategy) Name() string { return "directory" }

// Compare judges the directory itself, which is always Equal
func (DirectoryStrategy) Compare(context.Context, *storage.Streams, *storage.Entry, *storage.Entry) models.Verdict {
	return models.Equal("")
}

// Expand lists the directory
func (DirectoryStrategy) Expand(ctx context.Context, streams *storage.Streams, e *storage.Entry) ([]*storage.Entry, error) {
	if e.IsMember() {
		return nil, nil
	}
	children, err := streams.List(ctx, e)
	if err != nil {
		return nil, &models.ExpansionError{Path: e.Path(), Kind: models.KindDirectory, Err: err}
	}
	return children, nil
}

// ArchiveStrategy expands a container format into its members. Member
// headers are read in one forward pass; member data is read only when a
// member is compared.
type ArchiveStrategy struct {
	format archive.Format
}

// NewArchiveStrategy creates the strategy for a container format
func NewArchiveStrategy(format archive.Format) *ArchiveStrategy {
	return &ArchiveStrategy{format: format}
}

// Name returns the strategy name
func (s *ArchiveStrategy) Name() string { return s.format.Name() }

// Compare judges the archive itself. Archive-level headers are ignored.
func (s *ArchiveStrategy) Compare(context.Context, *storage.Streams, *storage.Entry, *storage.Entry) models.Verdict {
	return models.Equal("")
}

// Expand lists the archive members
func (s *ArchiveStrategy) Expand(ctx context.Context, streams *storage.Streams, e *storage.Entry) ([]*storage.Entry, error) {
	st, err := streams.Acquire(ctx, e)
	if err != nil {
		return nil, err
	}
	defer st.Release()

	fail := func(err error) error {
		return &models.ExpansionError{Path: e.Path(), Kind: s.format.Kind(), Err: err}
	}

	mr, err := s.format.NewReader(st)
	if err != nil {
		return nil, fail(err)
	}

	var children []*storage.Entry
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := mr.Next()
		if err == io.EOF {
			return children, nil
		}
		if err != nil {
			return nil, fail(err)
		}
		children = append(children, e.MemberChild(s.format, i, m))
	}
}

// CompressedStreamStrategy exposes the decompressed content of a stream as
// a single child, which is classified on its own
type CompressedStreamStrategy struct {
	codec archive.Codec
}

// NewCompressedStreamStrategy creates the strategy for a codec
func NewCompressedStreamStrategy(codec archive.Codec) *CompressedStreamStrategy {
	return &CompressedStreamStrategy{codec: codec}
}

// Name returns the strategy name
func (s *CompressedStreamStrategy) Name() string { return s.codec.Name() }

// Compare judges the compressed stream itself. Compression parameters and
// header fields such as the gzip mtime are ignored.
func (s *CompressedStreamStrategy) Compare(context.Context, *storage.Streams, *storage.Entry, *storage.Entry) models.Verdict {
	return models.Equal("")
}

// Expand returns the decompressed child without opening anything
func (s *CompressedStreamStrategy) Expand(_ context.Context, _ *storage.Streams, e *storage.Entry) ([]*storage.Entry, error) {
	return []*storage.Entry{e.DecompressedChild(s.codec)}, nil
}
