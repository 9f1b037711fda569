package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// File is an open filesystem file
type File interface {
	io.ReadCloser
	io.ReaderAt
}

// Local gives read-only access to the local filesystem. It never follows
// symlinks when reporting metadata.
type Local struct {
	fs afero.Fs
}

// NewLocal creates a read-only local filesystem backend
func NewLocal() *Local {
	return NewLocalFs(afero.NewOsFs())
}

// NewLocalFs creates a read-only backend over an arbitrary afero filesystem
func NewLocalFs(base afero.Fs) *Local {
	return &Local{fs: afero.NewReadOnlyFs(base)}
}

// Lstat returns file metadata without following a final symlink
func (l *Local) Lstat(path string) (fs.FileInfo, error) {
	if lst, ok := l.fs.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		return info, nil
	}
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info, nil
}

// ReadDir lists a directory, sorted by name
func (l *Local) ReadDir(path string) ([]fs.FileInfo, error) {
	infos, err := afero.ReadDir(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	return infos, nil
}

// Readlink returns a symlink's target without resolving it
func (l *Local) Readlink(path string) (string, error) {
	lr, ok := l.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("failed to read link %s: %w", path, afero.ErrNoReadlink)
	}
	target, err := lr.ReadlinkIfPossible(path)
	if err != nil {
		return "", fmt.Errorf("failed to read link %s: %w", path, err)
	}
	return target, nil
}

// Open opens a file for reading
func (l *Local) Open(path string) (File, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// SameFile reports whether two paths name the same underlying file
func (l *Local) SameFile(a, b string) bool {
	ia, err := l.fs.Stat(a)
	if err != nil {
		return false
	}
	ib, err := l.fs.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// Abs resolves a root path given on the command line
func Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return abs, nil
}
