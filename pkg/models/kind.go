package models

// Kind is the structural category of an entry's content
type Kind string

const (
	KindDirectory     Kind = "directory"
	KindRegularFile   Kind = "regular-file"
	KindSymlink       Kind = "symlink"
	KindTar           Kind = "tar-archive"
	KindCpio          Kind = "cpio-archive"
	KindAr            Kind = "ar-archive"
	KindGzip          Kind = "gzip-stream"
	KindBzip2         Kind = "bzip2-stream"
	KindXz            Kind = "xz-stream"
	KindZstd          Kind = "zstd-stream"
	KindElf           Kind = "elf-object"
	KindUnknownBinary Kind = "unknown-binary"
	KindText          Kind = "text"
	// KindSpecial covers devices, fifos and sockets. They are never opened.
	KindSpecial Kind = "special"
)

// AllKinds lists every known kind in classification-report order
var AllKinds = []Kind{
	KindDirectory,
	KindRegularFile,
	KindSymlink,
	KindTar,
	KindCpio,
	KindAr,
	KindGzip,
	KindBzip2,
	KindXz,
	KindZstd,
	KindElf,
	KindUnknownBinary,
	KindText,
	KindSpecial,
}

// IsContainer reports whether entries of this kind hold nested entries
// behind a decoding layer (archives and compressed streams)
func (k Kind) IsContainer() bool {
	switch k {
	case KindTar, KindCpio, KindAr, KindGzip, KindBzip2, KindXz, KindZstd:
		return true
	}
	return false
}

// ParseKind converts a string into a Kind
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
