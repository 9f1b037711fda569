package storage

import (
	"io/fs"
	"path"
	"path/filepath"

	"github.com/sdejongh/semcmp/pkg/archive"
	"github.com/sdejongh/semcmp/pkg/models"
)

// layer is one step of a member locator: either decompress the current
// stream with codec, or select member index (named name) from format.
type layer struct {
	codec  archive.Codec
	format archive.Format
	index  int
	name   string
	size   int64
}

// Entry is a comparison unit. It is either a plain filesystem path or a
// member locator: the outermost filesystem file plus an ordered chain of
// layers leading to the member. Opening an entry replays the chain.
type Entry struct {
	name    string
	display string
	rel     string
	fsPath  string
	layers  []layer

	mode   fs.FileMode
	size   int64
	info   fs.FileInfo
	member *archive.Member

	kind    models.Kind
	kindSet bool
}

func newFileEntry(fsPath, name, display, rel string, info fs.FileInfo) *Entry {
	return &Entry{
		name:    name,
		display: display,
		rel:     rel,
		fsPath:  fsPath,
		mode:    info.Mode(),
		size:    info.Size(),
		info:    info,
	}
}

// Name returns the entry's name within its parent
func (e *Entry) Name() string { return e.name }

// Path returns a human readable location, including archive layers
func (e *Entry) Path() string { return e.display }

// RelPath returns the slash separated path relative to the compared root
func (e *Entry) RelPath() string { return e.rel }

// FsPath returns the outermost filesystem path backing the entry
func (e *Entry) FsPath() string { return e.fsPath }

// Mode returns the file mode from filesystem metadata or the member header.
// Decompressed streams report a regular file.
func (e *Entry) Mode() fs.FileMode { return e.mode }

// Size returns the entry size when it is known without reading
func (e *Entry) Size() (int64, bool) { return e.size, e.size >= 0 }

// Depth returns the number of container layers between the filesystem and
// this entry
func (e *Entry) Depth() int { return len(e.layers) }

// IsMember reports whether the entry lives inside a container
func (e *Entry) IsMember() bool { return len(e.layers) > 0 }

// Member returns the archive header, or nil for filesystem entries and
// decompressed streams
func (e *Entry) Member() *archive.Member { return e.member }

// Kind returns the cached classification
func (e *Entry) Kind() (models.Kind, bool) { return e.kind, e.kindSet }

// SetKind caches the classification. An entry's kind never changes once set.
func (e *Entry) SetKind(k models.Kind) {
	if e.kindSet {
		return
	}
	e.kind = k
	e.kindSet = true
}

// child creates a filesystem entry for a directory listing result
func (e *Entry) child(info fs.FileInfo) *Entry {
	name := info.Name()
	return newFileEntry(
		filepath.Join(e.fsPath, name),
		name,
		joinDisplay(e.display, name),
		joinRel(e.rel, name),
		info,
	)
}

// MemberChild creates the entry for the member at position index of an
// archive expanded from e
func (e *Entry) MemberChild(format archive.Format, index int, m *archive.Member) *Entry {
	layers := make([]layer, len(e.layers), len(e.layers)+1)
	copy(layers, e.layers)
	layers = append(layers, layer{format: format, index: index, name: m.Name, size: m.Size})

	return &Entry{
		name:    m.Name,
		display: joinDisplay(e.display, m.Name),
		rel:     joinRel(e.rel, m.Name),
		fsPath:  e.fsPath,
		layers:  layers,
		mode:    m.Mode,
		size:    m.Size,
		member:  m,
	}
}

// DecompressedChild creates the entry for the decompressed content of e.
// Its name is fixed per codec so that differently named roots still pair.
func (e *Entry) DecompressedChild(codec archive.Codec) *Entry {
	layers := make([]layer, len(e.layers), len(e.layers)+1)
	copy(layers, e.layers)
	layers = append(layers, layer{codec: codec})

	name := "{" + codec.Name() + "}"
	return &Entry{
		name:    name,
		display: joinDisplay(e.display, name),
		rel:     joinRel(e.rel, name),
		fsPath:  e.fsPath,
		layers:  layers,
		size:    -1,
	}
}

// window sums the decoder memory estimates along the layer chain
func (e *Entry) window() int64 {
	var total int64
	for _, l := range e.layers {
		if l.codec != nil {
			total += l.codec.Window()
		}
	}
	return total
}

func joinDisplay(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return path.Join(parent, name)
}
