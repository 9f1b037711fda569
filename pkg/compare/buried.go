package compare

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/text/transform"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// BuriedPlaceholder replaces a root path found in content
const BuriedPlaceholder = "@placeholder@"

// BuriedPathStrategy treats content as equal when it differs only by the
// directories the two sides were built in. Builds often embed their own
// location in text and objects; the differing leading directories of the
// two paths are masked on each side before a second comparison.
type BuriedPathStrategy struct {
	inner Strategy
	exact *ByteStrategy
}

// NewBuriedPathStrategy wraps inner. Strategies that cannot judge masked
// readers themselves are re-checked byte by byte.
func NewBuriedPathStrategy(inner Strategy, bufferSize int) *BuriedPathStrategy {
	return &BuriedPathStrategy{inner: inner, exact: NewByteStrategy(bufferSize)}
}

// Name returns the wrapped strategy name
func (s *BuriedPathStrategy) Name() string { return s.inner.Name() + "+buried-paths" }

// Compare runs the wrapped strategy and re-compares a difference with the
// root directories masked
func (s *BuriedPathStrategy) Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
	v := s.inner.Compare(ctx, streams, left, right)
	if v.Outcome != models.OutcomeUnequal {
		return v
	}
	lhead, rhead, ok := BuriedHeads(left.FsPath(), right.FsPath())
	if !ok {
		return v
	}

	ls, rs, failed := acquirePair(ctx, streams, left, right)
	if failed != nil {
		return *failed
	}
	defer ls.Release()
	defer rs.Release()

	lr := transform.NewReader(ls, newReplacer(lhead, BuriedPlaceholder))
	rr := transform.NewReader(rs, newReplacer(rhead, BuriedPlaceholder))

	var masked models.Verdict
	if rc, ok := s.inner.(readerComparer); ok {
		masked = rc.compareReaders(ctx, left, right, lr, rr)
	} else {
		masked = s.exact.compareReaders(ctx, left, right, lr, rr)
	}
	switch {
	case masked.IsEqual():
		return models.Equal("equal once " + lhead + " and " + rhead + " are masked")
	case masked.IsError():
		return masked
	}
	return v
}

// BuriedHeads returns the leading directories of two paths that remain
// once their common trailing components are removed. ok is false when the
// heads are equal or either is the filesystem root.
func BuriedHeads(left, right string) (string, string, bool) {
	l, r := filepath.ToSlash(left), filepath.ToSlash(right)
	for {
		li, ri := strings.LastIndexByte(l, '/'), strings.LastIndexByte(r, '/')
		if li < 0 || ri < 0 || l[li:] != r[ri:] {
			break
		}
		l, r = l[:li], r[:ri]
	}
	if l == r || l == "" || r == "" {
		return "", "", false
	}
	return l, r, true
}

// replacer substitutes every occurrence of old in a stream, including
// occurrences split across reads
type replacer struct {
	transform.NopResetter
	old, repl []byte
}

func newReplacer(old, repl string) *replacer {
	return &replacer{old: []byte(old), repl: []byte(repl)}
}

func (r *replacer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		rest := src[nSrc:]
		i := bytes.Index(rest, r.old)
		if i < 0 {
			i = len(rest)
			if !atEOF {
				// hold back a tail that may start a match
				i = max(0, len(rest)-(len(r.old)-1))
			}
		}

		n := copy(dst[nDst:], rest[:i])
		nDst += n
		nSrc += n
		if n < i {
			return nDst, nSrc, transform.ErrShortDst
		}
		if i == len(rest) {
			return nDst, nSrc, nil
		}
		if !bytes.HasPrefix(rest[i:], r.old) {
			return nDst, nSrc, transform.ErrShortSrc
		}

		if len(dst)-nDst < len(r.repl) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], r.repl)
		nSrc += len(r.old)
	}
	return nDst, nSrc, nil
}
