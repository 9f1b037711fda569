// Package archive adapts container formats (tar, cpio, ar) and compression
// codecs (gzip, bzip2, xz, zstd) to the minimal contract the comparison
// engine depends on: a forward-only sequence of members, each with a name,
// a size and a byte stream, and decompressing stream wrappers.
package archive

import (
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/sdejongh/semcmp/pkg/models"
)

// Member describes one archive member
type Member struct {
	Name     string
	Size     int64
	Mode     fs.FileMode
	Linkname string
	// Hardlink marks tar hard links, whose Linkname names another member
	Hardlink bool
	Uid      int
	Gid      int
	Uname    string
	Gname    string
	// ModTime is recorded for reporting and never compared
	ModTime time.Time
}

// IsDir reports whether the member is a directory
func (m *Member) IsDir() bool { return m.Mode.IsDir() }

// IsLink reports whether the member is a symbolic or hard link
func (m *Member) IsLink() bool { return m.Hardlink || m.Mode&fs.ModeSymlink != 0 }

// IsSpecial reports whether the member is a device, fifo or socket
func (m *Member) IsSpecial() bool {
	return m.Mode&(fs.ModeDevice|fs.ModeCharDevice|fs.ModeNamedPipe|fs.ModeSocket) != 0
}

// LinkTarget returns the string links are compared by. Hard links are
// prefixed so they never match a symlink with the same target.
func (m *Member) LinkTarget() string {
	if m.Hardlink {
		return "hardlink:" + m.Linkname
	}
	return m.Linkname
}

// MemberReader walks an archive in a single forward pass. Read returns the
// data of the member most recently returned by Next.
type MemberReader interface {
	io.Reader
	// Next advances to the next member. It returns io.EOF at the end.
	Next() (*Member, error)
}

// Format is a container format
type Format interface {
	Name() string
	Kind() models.Kind
	NewReader(r io.Reader) (MemberReader, error)
}

// Codec is a compression format
type Codec interface {
	Name() string
	Kind() models.Kind
	// Window estimates the decoder's resident memory in bytes
	Window() int64
	NewReader(r io.Reader) (io.ReadCloser, error)
}

var formats = map[models.Kind]Format{
	models.KindTar:  tarFormat{},
	models.KindCpio: cpioFormat{},
	models.KindAr:   arFormat{},
}

var codecs = map[models.Kind]Codec{
	models.KindGzip:  gzipCodec{},
	models.KindBzip2: bzip2Codec{},
	models.KindXz:    xzCodec{},
	models.KindZstd:  zstdCodec{},
}

// FormatFor returns the container format for a kind
func FormatFor(kind models.Kind) (Format, bool) {
	f, ok := formats[kind]
	return f, ok
}

// CodecFor returns the compression codec for a kind
func CodecFor(kind models.Kind) (Codec, bool) {
	c, ok := codecs[kind]
	return c, ok
}

// cleanName normalizes a member name so that "./a/b/", "/a/b" and "a/b"
// all key the same member. It returns "" for the archive root.
func cleanName(name string) string {
	name = strings.TrimLeft(name, "/")
	name = path.Clean(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
