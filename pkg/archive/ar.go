package archive

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/blakesmith/ar"

	"github.com/sdejongh/semcmp/pkg/models"
)

// Special member names of the GNU and BSD ar variants
const (
	arSymbolTable   = "/"
	arSymbolTable64 = "/SYM64/"
	arLongNames     = "//"
	arBSDSymbolDef  = "__.SYMDEF"
	arBSDNamePrefix = "#1/"

	// Renamed so cleanName keeps them as distinct members
	arSymbolTableName = "{symbols}"
)

type arFormat struct{}

func (arFormat) Name() string      { return "ar" }
func (arFormat) Kind() models.Kind { return models.KindAr }

func (arFormat) NewReader(r io.Reader) (MemberReader, error) {
	return &arReader{rd: ar.NewReader(r)}, nil
}

// arReader resolves GNU long-name tables and BSD inline names on top of
// the plain header reader
type arReader struct {
	rd        *ar.Reader
	longNames []byte
}

func (r *arReader) Read(p []byte) (int, error) { return r.rd.Read(p) }

func (r *arReader) Next() (*Member, error) {
	for {
		hdr, err := r.rd.Next()
		if err != nil {
			return nil, err
		}

		name := strings.TrimRight(hdr.Name, " ")
		size := hdr.Size

		switch {
		case name == arLongNames:
			table, err := io.ReadAll(io.LimitReader(r.rd, size))
			if err != nil {
				return nil, fmt.Errorf("read ar long name table: %w", err)
			}
			r.longNames = table
			continue

		case name == arSymbolTable, name == arSymbolTable64, strings.HasPrefix(name, arBSDSymbolDef):
			name = arSymbolTableName

		case strings.HasPrefix(name, arBSDNamePrefix):
			n, err := strconv.Atoi(strings.TrimPrefix(name, arBSDNamePrefix))
			if err != nil || n < 0 || int64(n) > size {
				return nil, fmt.Errorf("malformed BSD ar name %q", name)
			}
			inline := make([]byte, n)
			if _, err := io.ReadFull(r.rd, inline); err != nil {
				return nil, fmt.Errorf("read BSD ar name: %w", err)
			}
			name = strings.TrimRight(string(inline), "\x00")
			size -= int64(n)

		case strings.HasPrefix(name, "/"):
			resolved, err := r.longName(name[1:])
			if err != nil {
				return nil, err
			}
			name = resolved

		default:
			// GNU terminates short names with a slash
			name = strings.TrimSuffix(name, "/")
		}

		if name != arSymbolTableName {
			name = cleanName(name)
			if name == "" {
				continue
			}
		}

		return &Member{
			Name:    name,
			Size:    size,
			Mode:    arMode(hdr.Mode),
			Uid:     hdr.Uid,
			Gid:     hdr.Gid,
			ModTime: hdr.ModTime,
		}, nil
	}
}

func (r *arReader) longName(ref string) (string, error) {
	offset, err := strconv.Atoi(ref)
	if err != nil || offset < 0 || offset >= len(r.longNames) {
		return "", fmt.Errorf("ar long name reference /%s out of range", ref)
	}
	rest := r.longNames[offset:]
	if end := strings.Index(string(rest), "/\n"); end >= 0 {
		rest = rest[:end]
	}
	return string(rest), nil
}

// arMode keeps the permission bits of an ar member. ar has no member types.
func arMode(raw int64) fs.FileMode {
	return fs.FileMode(raw) & fs.ModePerm
}
