// Package testutil builds comparison fixtures: paired left/right trees and
// in-memory archives produced with the same libraries the tool reads them
// with.
package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// TestHelper manages a pair of temporary trees to compare
type TestHelper struct {
	t        *testing.T
	tempDir  string
	LeftDir  string
	RightDir string
}

// NewTestHelper creates a new helper with empty left and right roots
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "semcmp-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	h := &TestHelper{
		t:        t,
		tempDir:  tempDir,
		LeftDir:  filepath.Join(tempDir, "left"),
		RightDir: filepath.Join(tempDir, "right"),
	}
	for _, dir := range []string{h.LeftDir, h.RightDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return h
}

// TempDir returns the directory holding both roots
func (h *TestHelper) TempDir() string { return h.tempDir }

// CreateLeftFile creates a file under the left root
func (h *TestHelper) CreateLeftFile(name string, content []byte) string {
	h.t.Helper()
	return h.CreateFile(h.LeftDir, name, content)
}

// CreateRightFile creates a file under the right root
func (h *TestHelper) CreateRightFile(name string, content []byte) string {
	h.t.Helper()
	return h.CreateFile(h.RightDir, name, content)
}

// CreateBoth creates the same file under both roots
func (h *TestHelper) CreateBoth(name string, content []byte) {
	h.t.Helper()
	h.CreateLeftFile(name, content)
	h.CreateRightFile(name, content)
}

// CreateFile creates a file under root, making parent directories
func (h *TestHelper) CreateFile(root, name string, content []byte) string {
	h.t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		h.t.Fatalf("failed to create file: %v", err)
	}
	return path
}

// CreateDir creates an empty directory under root
func (h *TestHelper) CreateDir(root, name string) string {
	h.t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		h.t.Fatalf("failed to create dir: %v", err)
	}
	return path
}

// Symlink creates a symlink under root pointing at target
func (h *TestHelper) Symlink(root, name, target string) string {
	h.t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.Symlink(target, path); err != nil {
		h.t.Skipf("symlinks unsupported: %v", err)
	}
	return path
}

// SetModTime sets the modification time of a path
func (h *TestHelper) SetModTime(path string, modTime time.Time) {
	h.t.Helper()
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		h.t.Fatalf("failed to set mod time: %v", err)
	}
}

// File is one archive member to write
type File struct {
	Name     string
	Content  []byte
	Mode     int64
	ModTime  time.Time
	Uid      int
	Gid      int
	Dir      bool
	Linkname string
}

func (f File) mode() int64 {
	if f.Mode != 0 {
		return f.Mode
	}
	if f.Dir {
		return 0755
	}
	return 0644
}

func (f File) modTime() time.Time {
	if f.ModTime.IsZero() {
		return time.Unix(1700000000, 0)
	}
	return f.ModTime
}

// Tar returns a tar archive holding files in order
func Tar(t *testing.T, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.Name,
			Mode:    f.mode(),
			ModTime: f.modTime(),
			Uid:     f.Uid,
			Gid:     f.Gid,
			Size:    int64(len(f.Content)),
		}
		switch {
		case f.Dir:
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		case f.Linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = f.Linkname
			hdr.Size = 0
		default:
			hdr.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write(f.Content); err != nil {
				t.Fatalf("failed to write tar member: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	return buf.Bytes()
}

// Cpio returns a SVR4 cpio archive holding regular files in order
func Cpio(t *testing.T, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	cw := cpio.NewWriter(&buf)
	for _, f := range files {
		hdr := &cpio.Header{
			Name:    f.Name,
			Mode:    cpio.FileMode(f.mode()) | cpio.TypeReg,
			Uid:     f.Uid,
			Guid:    f.Gid,
			ModTime: f.modTime(),
			Size:    int64(len(f.Content)),
		}
		if err := cw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write cpio header: %v", err)
		}
		if _, err := cw.Write(f.Content); err != nil {
			t.Fatalf("failed to write cpio member: %v", err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("failed to close cpio: %v", err)
	}
	return buf.Bytes()
}

// CpioOdc returns a portable-ASCII (odc, magic 070707) cpio archive. The
// writer library only emits newc, so headers are formatted by hand.
func CpioOdc(t *testing.T, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	member := func(ino int, name string, mode int64, mtime int64, content []byte) {
		fmt.Fprintf(&buf, "070707%06o%06o%06o%06o%06o%06o%06o%011o%06o%011o",
			0, ino, mode, 0, 0, 1, 0, mtime, len(name)+1, len(content))
		buf.WriteString(name)
		buf.WriteByte(0)
		buf.Write(content)
	}
	for i, f := range files {
		member(i+1, f.Name, 0100000|f.mode(), f.modTime().Unix(), f.Content)
	}
	member(0, "TRAILER!!!", 0, 0, nil)
	return buf.Bytes()
}

// Ar returns a common-format ar archive holding files in order. Names must
// fit 15 characters.
func Ar(t *testing.T, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	aw := ar.NewWriter(&buf)
	if err := aw.WriteGlobalHeader(); err != nil {
		t.Fatalf("failed to write ar global header: %v", err)
	}
	for _, f := range files {
		hdr := &ar.Header{
			Name:    f.Name,
			ModTime: f.modTime(),
			Uid:     f.Uid,
			Gid:     f.Gid,
			Mode:    f.mode(),
			Size:    int64(len(f.Content)),
		}
		if err := aw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write ar header: %v", err)
		}
		if _, err := aw.Write(f.Content); err != nil {
			t.Fatalf("failed to write ar member: %v", err)
		}
	}
	return buf.Bytes()
}

// Gzip compresses data. A non-zero mtime is stored in the gzip header.
func Gzip(t *testing.T, data []byte, mtime time.Time) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.ModTime = mtime
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("failed to gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}
	return buf.Bytes()
}

// Xz compresses data
func Xz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	if _, err := xw.Write(data); err != nil {
		t.Fatalf("failed to xz: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("failed to close xz: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data
func Zstd(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd encoder: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}
