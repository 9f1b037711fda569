// Package classify assigns a models.Kind to an entry from its metadata and,
// for regular content, from a short prefix of its bytes.
package classify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// PrefixSize is the number of leading bytes inspected for signatures
const PrefixSize = 512

type signature struct {
	kind  models.Kind
	match func(prefix []byte) bool
}

func magic(offset int, want []byte) func([]byte) bool {
	return func(prefix []byte) bool {
		return len(prefix) >= offset+len(want) && bytes.Equal(prefix[offset:offset+len(want)], want)
	}
}

// signatures are checked in order; the first match wins
var signatures = []signature{
	{models.KindElf, magic(0, []byte("\x7fELF"))},
	{models.KindAr, magic(0, []byte("!<arch>\n"))},
	{models.KindGzip, magic(0, []byte{0x1f, 0x8b})},
	{models.KindBzip2, magic(0, []byte("BZh"))},
	{models.KindXz, magic(0, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00})},
	{models.KindZstd, magic(0, []byte{0x28, 0xb5, 0x2f, 0xfd})},
	// newc and crc only; odc and binary cpio are read as plain bytes
	{models.KindCpio, func(p []byte) bool {
		return magic(0, []byte("070701"))(p) || magic(0, []byte("070702"))(p)
	}},
	{models.KindTar, magic(257, []byte("ustar"))},
}

// hints map file extensions to the signature tried first
var hints = map[string]models.Kind{
	".tar":  models.KindTar,
	".tgz":  models.KindGzip,
	".gz":   models.KindGzip,
	".bz2":  models.KindBzip2,
	".tbz2": models.KindBzip2,
	".xz":   models.KindXz,
	".txz":  models.KindXz,
	".zst":  models.KindZstd,
	".a":    models.KindAr,
	".deb":  models.KindAr,
	".cpio": models.KindCpio,
	".o":    models.KindElf,
	".so":   models.KindElf,
}

// Classifier determines entry kinds, reading through the budgeted stream
// layer when content must be inspected
type Classifier struct {
	streams *storage.Streams
}

// New creates a classifier
func New(streams *storage.Streams) *Classifier {
	return &Classifier{streams: streams}
}

// Classify returns the kind of e, caching it on the entry. Directories,
// symlinks, special files and empty files are decided from metadata
// without opening anything.
func (c *Classifier) Classify(ctx context.Context, e *storage.Entry) (models.Kind, error) {
	if kind, ok := e.Kind(); ok {
		return kind, nil
	}

	kind, ok := FromMetadata(e)
	if !ok {
		prefix, err := c.readPrefix(ctx, e)
		if err != nil {
			return "", &models.ClassificationError{Path: e.Path(), Err: err}
		}
		kind = Detect(prefix, e.Name())
	}

	e.SetKind(kind)
	return kind, nil
}

// FromMetadata decides the kind of entries that are never opened
func FromMetadata(e *storage.Entry) (models.Kind, bool) {
	if m := e.Member(); m != nil && m.Hardlink {
		return models.KindSymlink, true
	}

	mode := e.Mode()
	switch {
	case mode.IsDir():
		return models.KindDirectory, true
	case mode&fs.ModeSymlink != 0:
		return models.KindSymlink, true
	case mode&(fs.ModeDevice|fs.ModeCharDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeIrregular) != 0:
		return models.KindSpecial, true
	}

	if size, known := e.Size(); known && size == 0 {
		return models.KindRegularFile, true
	}
	return "", false
}

func (c *Classifier) readPrefix(ctx context.Context, e *storage.Entry) ([]byte, error) {
	st, err := c.streams.Acquire(ctx, e)
	if err != nil {
		return nil, err
	}
	defer st.Release()

	prefix := make([]byte, PrefixSize)
	n, err := io.ReadFull(st, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return prefix[:n], nil
}

// Detect classifies content from its leading bytes. The name's extension
// only changes which signature is tried first.
func Detect(prefix []byte, name string) models.Kind {
	if len(prefix) == 0 {
		return models.KindRegularFile
	}

	if hinted, ok := hints[strings.ToLower(path.Ext(name))]; ok {
		for _, sig := range signatures {
			if sig.kind == hinted && sig.match(prefix) {
				return hinted
			}
		}
	}

	for _, sig := range signatures {
		if sig.match(prefix) {
			return sig.kind
		}
	}

	if IsText(prefix) {
		return models.KindText
	}
	return models.KindUnknownBinary
}

// IsText reports whether the detected MIME type descends from text/plain
func IsText(prefix []byte) bool {
	for mt := mimetype.Detect(prefix); mt != nil; mt = mt.Parent() {
		if mt.Is("text/plain") {
			return true
		}
	}
	return false
}
