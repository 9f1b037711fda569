package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/semcmp/internal/testutil"
	"github.com/sdejongh/semcmp/pkg/models"
)

type readMember struct {
	member *Member
	data   []byte
}

func readAll(t *testing.T, kind models.Kind, data []byte) []readMember {
	t.Helper()
	format, ok := FormatFor(kind)
	require.True(t, ok)

	mr, err := format.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	var members []readMember
	for {
		m, err := mr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(mr)
		require.NoError(t, err)
		members = append(members, readMember{member: m, data: content})
	}
	return members
}

func TestTarFormat(t *testing.T) {
	t.Run("MembersInOrder", func(t *testing.T) {
		data := testutil.Tar(t,
			testutil.File{Name: "./", Dir: true},
			testutil.File{Name: "./dir/", Dir: true},
			testutil.File{Name: "./dir/a.txt", Content: []byte("alpha")},
			testutil.File{Name: "/abs/b", Content: []byte("beta"), Uid: 42},
			testutil.File{Name: "link", Linkname: "dir/a.txt"},
		)

		members := readAll(t, models.KindTar, data)
		require.Len(t, members, 4)

		assert.Equal(t, "dir", members[0].member.Name)
		assert.True(t, members[0].member.IsDir())

		assert.Equal(t, "dir/a.txt", members[1].member.Name)
		assert.Equal(t, "alpha", string(members[1].data))
		assert.Equal(t, int64(5), members[1].member.Size)

		assert.Equal(t, "abs/b", members[2].member.Name)
		assert.Equal(t, 42, members[2].member.Uid)

		assert.True(t, members[3].member.IsLink())
		assert.Equal(t, "dir/a.txt", members[3].member.LinkTarget())
	})
}

func TestCpioFormat(t *testing.T) {
	data := testutil.Cpio(t,
		testutil.File{Name: "one", Content: []byte("1")},
		testutil.File{Name: "./two", Content: []byte("22"), Mode: 0600, Uid: 1000, Gid: 100},
	)

	members := readAll(t, models.KindCpio, data)
	require.Len(t, members, 2)
	assert.Equal(t, "one", members[0].member.Name)
	assert.Equal(t, "1", string(members[0].data))
	assert.Equal(t, "two", members[1].member.Name)
	assert.Equal(t, "22", string(members[1].data))
	assert.Equal(t, "-rw-------", members[1].member.Mode.String())
	assert.Equal(t, 1000, members[1].member.Uid)
	assert.Equal(t, 100, members[1].member.Gid)
}

func TestArFormat(t *testing.T) {
	data := testutil.Ar(t,
		testutil.File{Name: "a.o", Content: []byte("obj-a")},
		testutil.File{Name: "b.o", Content: []byte("obj-bb")},
	)

	members := readAll(t, models.KindAr, data)
	require.Len(t, members, 2)
	assert.Equal(t, "a.o", members[0].member.Name)
	assert.Equal(t, "obj-a", string(members[0].data))
	assert.Equal(t, "b.o", members[1].member.Name)
	assert.Equal(t, int64(6), members[1].member.Size)
}

func TestArSymbolTables(t *testing.T) {
	for _, name := range []string{"/", "/SYM64/", "__.SYMDEF"} {
		t.Run(name, func(t *testing.T) {
			data := testutil.Ar(t,
				testutil.File{Name: name, Content: []byte("symbols")},
				testutil.File{Name: "a.o", Content: []byte("obj-a")},
			)

			members := readAll(t, models.KindAr, data)
			require.Len(t, members, 2)
			assert.Equal(t, arSymbolTableName, members[0].member.Name)
			assert.Equal(t, "symbols", string(members[0].data))
			assert.Equal(t, "a.o", members[1].member.Name)
		})
	}
}

func TestArLongName(t *testing.T) {
	r := &arReader{longNames: []byte("very_long_object_name.o/\nother.o/\n")}

	name, err := r.longName("0")
	require.NoError(t, err)
	assert.Equal(t, "very_long_object_name.o", name)

	name, err = r.longName("25")
	require.NoError(t, err)
	assert.Equal(t, "other.o", name)

	_, err = r.longName("999")
	assert.Error(t, err)
}

func TestCodecs(t *testing.T) {
	payload := bytes.Repeat([]byte("compressible payload "), 100)

	tests := []struct {
		kind models.Kind
		data []byte
	}{
		{models.KindGzip, testutil.Gzip(t, payload, time.Time{})},
		{models.KindXz, testutil.Xz(t, payload)},
		{models.KindZstd, testutil.Zstd(t, payload)},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			codec, ok := CodecFor(tt.kind)
			require.True(t, ok)
			assert.Positive(t, codec.Window())

			rc, err := codec.NewReader(bytes.NewReader(tt.data))
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}

	t.Run("UnknownKind", func(t *testing.T) {
		_, ok := CodecFor(models.KindText)
		assert.False(t, ok)
	})
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"./a/b/": "a/b",
		"/a/b":   "a/b",
		"a//b":   "a/b",
		".":      "",
		"./":     "",
		"/":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), "cleanName(%q)", in)
	}
}
