package archive

import (
	"io"
	"io/fs"

	"github.com/cavaliergopher/cpio"

	"github.com/sdejongh/semcmp/pkg/models"
)

// Type bits of a cpio mode field
const (
	cpioTypeMask    = 0170000
	cpioTypeSocket  = 0140000
	cpioTypeSymlink = 0120000
	cpioTypeBlock   = 0060000
	cpioTypeDir     = 0040000
	cpioTypeChar    = 0020000
	cpioTypeFifo    = 0010000

	maxLinkTarget = 4096
)

type cpioFormat struct{}

func (cpioFormat) Name() string      { return "cpio" }
func (cpioFormat) Kind() models.Kind { return models.KindCpio }

func (cpioFormat) NewReader(r io.Reader) (MemberReader, error) {
	return &cpioReader{cr: cpio.NewReader(r)}, nil
}

type cpioReader struct {
	cr *cpio.Reader
}

func (r *cpioReader) Read(p []byte) (int, error) { return r.cr.Read(p) }

func (r *cpioReader) Next() (*Member, error) {
	for {
		hdr, err := r.cr.Next()
		if err != nil {
			return nil, err
		}
		name := cleanName(hdr.Name)
		if name == "" {
			continue
		}

		raw := uint32(hdr.Mode)
		m := &Member{
			Name:     name,
			Size:     hdr.Size,
			Mode:     cpioMode(raw),
			Linkname: hdr.Linkname,
			Uid:      hdr.Uid,
			Gid:      hdr.Guid,
			ModTime:  hdr.ModTime,
		}
		// Symlink targets live in the data area; they are compared through
		// Linkname only.
		if raw&cpioTypeMask == cpioTypeSymlink {
			if m.Linkname == "" {
				target, err := io.ReadAll(io.LimitReader(r.cr, maxLinkTarget))
				if err != nil {
					return nil, err
				}
				m.Linkname = string(target)
			}
			m.Size = 0
		}
		return m, nil
	}
}

func cpioMode(raw uint32) fs.FileMode {
	mode := fs.FileMode(raw & 0777)
	if raw&04000 != 0 {
		mode |= fs.ModeSetuid
	}
	if raw&02000 != 0 {
		mode |= fs.ModeSetgid
	}
	if raw&01000 != 0 {
		mode |= fs.ModeSticky
	}
	switch raw & cpioTypeMask {
	case cpioTypeDir:
		mode |= fs.ModeDir
	case cpioTypeSymlink:
		mode |= fs.ModeSymlink
	case cpioTypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case cpioTypeBlock:
		mode |= fs.ModeDevice
	case cpioTypeFifo:
		mode |= fs.ModeNamedPipe
	case cpioTypeSocket:
		mode |= fs.ModeSocket
	}
	return mode
}
