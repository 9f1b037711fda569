package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/semcmp/internal/testutil"
	"github.com/sdejongh/semcmp/pkg/archive"
	"github.com/sdejongh/semcmp/pkg/models"
)

func newTestStreams(maxDescriptors int64) *Streams {
	budget := NewBudget(maxDescriptors, 256*1024*1024, models.PolicyBlock)
	return NewStreams(NewLocal(), budget, nil, 4096)
}

func readEntry(t *testing.T, s *Streams, e *Entry) string {
	t.Helper()
	st, err := s.Acquire(context.Background(), e)
	require.NoError(t, err)
	defer st.Release()

	data, err := io.ReadAll(st)
	require.NoError(t, err)
	return string(data)
}

// expand lists every member of an archive entry
func expand(t *testing.T, s *Streams, e *Entry, format archive.Format) []*Entry {
	t.Helper()
	st, err := s.Acquire(context.Background(), e)
	require.NoError(t, err)
	defer st.Release()

	mr, err := format.NewReader(st)
	require.NoError(t, err)

	var children []*Entry
	for i := 0; ; i++ {
		m, err := mr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		children = append(children, e.MemberChild(format, i, m))
	}
	return children
}

func TestStreamsRoot(t *testing.T) {
	h := testutil.NewTestHelper(t)
	s := newTestStreams(4)

	t.Run("Directory", func(t *testing.T) {
		root, err := s.Root(h.LeftDir)
		require.NoError(t, err)
		assert.True(t, root.Mode().IsDir())
		assert.Equal(t, "", root.RelPath())
		assert.Zero(t, root.Depth())
		assert.False(t, root.IsMember())
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := s.Root(filepath.Join(h.TempDir(), "does-not-exist"))
		assert.Error(t, err)
	})
}

func TestStreamsList(t *testing.T) {
	h := testutil.NewTestHelper(t)
	h.CreateLeftFile("b.txt", []byte("b"))
	h.CreateLeftFile("a.txt", []byte("a"))
	h.CreateLeftFile("sub/c.txt", []byte("c"))

	s := newTestStreams(4)
	root, err := s.Root(h.LeftDir)
	require.NoError(t, err)

	children, err := s.List(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, children, 3)

	assert.Equal(t, "a.txt", children[0].Name())
	assert.Equal(t, "b.txt", children[1].Name())
	assert.Equal(t, "sub", children[2].Name())
	assert.Equal(t, "sub", children[2].RelPath())

	size, ok := children[0].Size()
	assert.True(t, ok)
	assert.Equal(t, int64(1), size)

	sub, err := s.List(context.Background(), children[2])
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, "sub/c.txt", sub[0].RelPath())

	desc, _ := s.Budget().InUse()
	assert.Zero(t, desc, "listing must release its descriptor")
}

func TestStreamsAcquire(t *testing.T) {
	h := testutil.NewTestHelper(t)
	path := h.CreateLeftFile("plain.txt", []byte("plain content"))

	s := newTestStreams(4)
	entry, err := s.Root(path)
	require.NoError(t, err)

	t.Run("ReadsContent", func(t *testing.T) {
		assert.Equal(t, "plain content", readEntry(t, s, entry))
		assert.Equal(t, int64(len("plain content")), s.BytesRead())
	})

	t.Run("ReleaseReturnsBudget", func(t *testing.T) {
		st, err := s.Acquire(context.Background(), entry)
		require.NoError(t, err)

		desc, mem := s.Budget().InUse()
		assert.Equal(t, int64(1), desc)
		assert.Equal(t, s.Memory(entry), mem)

		require.NoError(t, st.Release())
		require.NoError(t, st.Release())

		desc, mem = s.Budget().InUse()
		assert.Zero(t, desc)
		assert.Zero(t, mem)
	})

	t.Run("ReaderAt", func(t *testing.T) {
		st, err := s.Acquire(context.Background(), entry)
		require.NoError(t, err)
		defer st.Release()

		ra, size, ok := st.ReaderAt()
		require.True(t, ok)
		assert.Equal(t, int64(13), size)

		buf := make([]byte, 7)
		_, err = ra.ReadAt(buf, 6)
		require.NoError(t, err)
		assert.Equal(t, "content", string(buf))
	})
}

func TestStreamsLayers(t *testing.T) {
	h := testutil.NewTestHelper(t)

	inner := testutil.Tar(t,
		testutil.File{Name: "deep.txt", Content: []byte("deep content")},
	)
	outer := testutil.Tar(t,
		testutil.File{Name: "readme", Content: []byte("outer readme")},
		testutil.File{Name: "inner.tar.gz", Content: testutil.Gzip(t, inner, time.Time{})},
	)
	path := h.CreateLeftFile("outer.tar.xz", testutil.Xz(t, outer))

	s := newTestStreams(1)
	root, err := s.Root(path)
	require.NoError(t, err)

	xzCodec, _ := archive.CodecFor(models.KindXz)
	gzCodec, _ := archive.CodecFor(models.KindGzip)
	tarFormat, _ := archive.FormatFor(models.KindTar)

	decompressed := root.DecompressedChild(xzCodec)
	assert.Equal(t, "{xz}", decompressed.Name())
	_, known := decompressed.Size()
	assert.False(t, known)

	members := expand(t, s, decompressed, tarFormat)
	require.Len(t, members, 2)
	assert.Equal(t, path+"/{xz}/readme", members[0].Path())
	assert.Equal(t, "outer readme", readEntry(t, s, members[0]))

	innerGz := members[1]
	assert.Equal(t, 2, innerGz.Depth())
	innerTar := innerGz.DecompressedChild(gzCodec)
	deep := expand(t, s, innerTar, tarFormat)
	require.Len(t, deep, 1)

	assert.Equal(t, 4, deep[0].Depth())
	assert.True(t, deep[0].IsMember())
	assert.Equal(t, "{xz}/inner.tar.gz/{gzip}/deep.txt", deep[0].RelPath())
	assert.Equal(t, "deep content", readEntry(t, s, deep[0]))

	// every read above ran with a single descriptor
	peak, _ := s.Budget().Peak()
	assert.Equal(t, int64(1), peak)
	assert.Equal(t, int64(4096)+xzCodec.Window()+gzCodec.Window(), s.Memory(deep[0]))
}

func TestStreamsMemberMoved(t *testing.T) {
	h := testutil.NewTestHelper(t)
	path := h.CreateLeftFile("a.tar", testutil.Tar(t,
		testutil.File{Name: "one", Content: []byte("1")},
		testutil.File{Name: "two", Content: []byte("2")},
	))

	s := newTestStreams(2)
	root, err := s.Root(path)
	require.NoError(t, err)
	tarFormat, _ := archive.FormatFor(models.KindTar)
	members := expand(t, s, root, tarFormat)
	require.Len(t, members, 2)

	// rewrite the archive so the recorded position no longer matches
	require.NoError(t, os.WriteFile(path, testutil.Tar(t,
		testutil.File{Name: "one", Content: []byte("1")},
	), 0644))

	_, err = s.Acquire(context.Background(), members[1])
	var expErr *models.ExpansionError
	require.ErrorAs(t, err, &expErr)
	assert.ErrorIs(t, err, errMemberMoved)

	desc, _ := s.Budget().InUse()
	assert.Zero(t, desc)
}

func TestStreamsAcquirePair(t *testing.T) {
	h := testutil.NewTestHelper(t)
	left := h.CreateLeftFile("f", []byte("left"))
	right := h.CreateRightFile("f", []byte("right"))

	t.Run("OpensBoth", func(t *testing.T) {
		s := newTestStreams(2)
		a, err := s.Root(left)
		require.NoError(t, err)
		b, err := s.Root(right)
		require.NoError(t, err)

		sa, sb, err := s.AcquirePair(context.Background(), a, b)
		require.NoError(t, err)

		desc, _ := s.Budget().InUse()
		assert.Equal(t, int64(2), desc)

		da, _ := io.ReadAll(sa)
		db, _ := io.ReadAll(sb)
		assert.Equal(t, "left", string(da))
		assert.Equal(t, "right", string(db))

		sa.Release()
		desc, _ = s.Budget().InUse()
		assert.Equal(t, int64(1), desc)
		sb.Release()
		desc, mem := s.Budget().InUse()
		assert.Zero(t, desc)
		assert.Zero(t, mem)
	})

	t.Run("BudgetTooSmall", func(t *testing.T) {
		s := newTestStreams(1)
		a, _ := s.Root(left)
		b, _ := s.Root(right)

		_, _, err := s.AcquirePair(context.Background(), a, b)
		assert.ErrorIs(t, err, models.ErrBudgetExceeded)
	})

	t.Run("OpenFailureReleasesBoth", func(t *testing.T) {
		s := newTestStreams(2)
		a, _ := s.Root(left)
		gone := h.CreateRightFile("gone", []byte("x"))
		b, err := s.Root(gone)
		require.NoError(t, err)
		require.NoError(t, os.Remove(gone))

		_, _, err = s.AcquirePair(context.Background(), a, b)
		assert.Error(t, err)

		desc, mem := s.Budget().InUse()
		assert.Zero(t, desc)
		assert.Zero(t, mem)
	})
}

func TestStreamsLinks(t *testing.T) {
	h := testutil.NewTestHelper(t)
	target := h.CreateLeftFile("target", []byte("data"))
	link := h.Symlink(h.LeftDir, "link", "target")

	s := newTestStreams(2)

	t.Run("Readlink", func(t *testing.T) {
		e, err := s.Root(link)
		require.NoError(t, err)
		assert.NotZero(t, e.Mode()&os.ModeSymlink)

		got, err := s.Readlink(e)
		require.NoError(t, err)
		assert.Equal(t, "target", got)
	})

	t.Run("SameFile", func(t *testing.T) {
		hard := filepath.Join(h.RightDir, "hard")
		if err := os.Link(target, hard); err != nil {
			t.Skipf("hard links unsupported: %v", err)
		}
		other := h.CreateRightFile("other", []byte("data"))

		a, _ := s.Root(target)
		b, _ := s.Root(hard)
		c, _ := s.Root(other)
		assert.True(t, s.SameFile(a, b))
		assert.False(t, s.SameFile(a, c))
	})
}
