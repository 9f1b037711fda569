package archive

import (
	"archive/tar"
	"io"
	"io/fs"

	"github.com/sdejongh/semcmp/pkg/models"
)

type tarFormat struct{}

func (tarFormat) Name() string      { return "tar" }
func (tarFormat) Kind() models.Kind { return models.KindTar }

func (tarFormat) NewReader(r io.Reader) (MemberReader, error) {
	return &tarReader{tr: tar.NewReader(r)}, nil
}

type tarReader struct {
	tr *tar.Reader
}

func (r *tarReader) Read(p []byte) (int, error) { return r.tr.Read(p) }

func (r *tarReader) Next() (*Member, error) {
	for {
		hdr, err := r.tr.Next()
		if err != nil {
			return nil, err
		}
		// Global PAX headers carry defaults, not members.
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		name := cleanName(hdr.Name)
		if name == "" {
			continue
		}

		m := &Member{
			Name:     name,
			Size:     hdr.Size,
			Mode:     hdr.FileInfo().Mode(),
			Linkname: hdr.Linkname,
			Uid:      hdr.Uid,
			Gid:      hdr.Gid,
			Uname:    hdr.Uname,
			Gname:    hdr.Gname,
			ModTime:  hdr.ModTime,
		}
		if hdr.Typeflag == tar.TypeLink {
			m.Hardlink = true
			m.Mode &^= fs.ModeType
			m.Size = 0
		}
		return m, nil
	}
}
