package archive

import (
	"compress/bzip2"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/sdejongh/semcmp/pkg/models"
)

// Decoder memory estimates, charged against the in-flight memory budget
// for every open decompression layer
const (
	gzipWindow  = 64 * 1024
	bzip2Window = 4 * 1024 * 1024
	xzWindow    = 8 * 1024 * 1024
	zstdWindow  = 8 * 1024 * 1024

	zstdMaxMemory = 64 * 1024 * 1024
)

type gzipCodec struct{}

func (gzipCodec) Name() string      { return "gzip" }
func (gzipCodec) Kind() models.Kind { return models.KindGzip }
func (gzipCodec) Window() int64     { return gzipWindow }

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

type bzip2Codec struct{}

func (bzip2Codec) Name() string      { return "bzip2" }
func (bzip2Codec) Kind() models.Kind { return models.KindBzip2 }
func (bzip2Codec) Window() int64     { return bzip2Window }

func (bzip2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

type xzCodec struct{}

func (xzCodec) Name() string      { return "xz" }
func (xzCodec) Kind() models.Kind { return models.KindXz }
func (xzCodec) Window() int64     { return xzWindow }

func (xzCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

type zstdCodec struct{}

func (zstdCodec) Name() string      { return "zstd" }
func (zstdCodec) Kind() models.Kind { return models.KindZstd }
func (zstdCodec) Window() int64     { return zstdWindow }

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(zstdMaxMemory),
	)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
