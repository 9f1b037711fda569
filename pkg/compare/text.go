package compare

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"slices"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// TextOptions are the opt-in normalizations of the text strategy. With
// none enabled the strategy is exact: equal means byte-identical.
type TextOptions struct {
	// IgnoreTrailingSpace drops spaces, tabs and carriage returns at the
	// end of every line
	IgnoreTrailingSpace bool
	// BlotDates replaces common date renderings with a fixed token
	BlotDates bool
	// Rules rewrite lines after the other normalizations
	Rules []LineRule
}

// LineRule rewrites one line, numbered from 1, without its terminator
type LineRule func(n int, line []byte) []byte

func (o TextOptions) normalizing() bool {
	return o.IgnoreTrailingSpace || o.BlotDates || len(o.Rules) > 0
}

const dateToken = "<date>"

var datePatterns = []*regexp.Regexp{
	// Sun Feb 13 12:29:28 PST 2011
	regexp.MustCompile(`(Sun|Mon|Tue|Wed|Thu|Fri|Sat) (Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) +[0-9]{1,2} [0-9]{2}:[0-9]{2}:[0-9]{2}( [A-Z]{3,4})? [0-9]{4}`),
	// 13 FEB 2011 11:52
	regexp.MustCompile(`(?i)[0-9]{1,2} (JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC) [0-9]{4} [0-9]{2}:[0-9]{2}`),
	// April  7, 2011
	regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December) +[0-9]{1,2}, [0-9]{4}`),
	// Wed Apr 13 2011
	regexp.MustCompile(`(Sun|Mon|Tue|Wed|Thu|Fri|Sat) (Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) +[0-9]{1,2} +[0-9]{4}`),
	// 2011-02-13T12:29:28.5+01:00
	regexp.MustCompile(`[0-9]{4}-[0-9]{2}-[0-9]{2}([T ][0-9]{2}:[0-9]{2}(:[0-9]{2}(\.[0-9]+)?)?(Z|[+-][0-9]{2}:?[0-9]{2})?)?`),
}

// BlotDates replaces every recognized date in line with a fixed token
func BlotDates(line []byte) []byte {
	for _, re := range datePatterns {
		line = re.ReplaceAll(line, []byte(dateToken))
	}
	return line
}

// TextStrategy compares text line by line and reports the first differing
// line
type TextStrategy struct {
	opts       TextOptions
	bufferSize int
}

// NewTextStrategy creates a text strategy
func NewTextStrategy(opts TextOptions, bufferSize int) *TextStrategy {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &TextStrategy{opts: opts, bufferSize: bufferSize}
}

// WithRules returns a copy of s that also applies rules
func (s *TextStrategy) WithRules(rules ...LineRule) *TextStrategy {
	opts := s.opts
	opts.Rules = append(slices.Clone(opts.Rules), rules...)
	return &TextStrategy{opts: opts, bufferSize: s.bufferSize}
}

// Name returns the strategy name
func (s *TextStrategy) Name() string {
	return "text"
}

// Compare compares both entries line by line
func (s *TextStrategy) Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
	if s.opts.normalizing() {
		if v, ok := sameFileOrEmpty(streams, left, right); ok {
			return v
		}
	} else if v, ok := sameFileOrSize(streams, left, right); ok {
		return v
	}

	ls, rs, failed := acquirePair(ctx, streams, left, right)
	if failed != nil {
		return *failed
	}
	defer ls.Release()
	defer rs.Release()
	return s.compareReaders(ctx, left, right, ls, rs)
}

func (s *TextStrategy) compareReaders(ctx context.Context, left, right *storage.Entry, lsrc, rsrc io.Reader) models.Verdict {
	lr := s.lineReader(lsrc)
	rr := s.lineReader(rsrc)
	var lbuf, rbuf []byte

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return models.Failed(err)
		}

		lchunk, lerr := s.readLine(lr, &lbuf)
		if err := s.readError(left, lerr); err != nil {
			return models.Failed(err)
		}
		rchunk, rerr := s.readLine(rr, &rbuf)
		if err := s.readError(right, rerr); err != nil {
			return models.Failed(err)
		}

		if !bytes.Equal(s.normalize(line, lchunk, lerr), s.normalize(line, rchunk, rerr)) {
			return models.Unequal(models.ReasonContentAtLine, "text differs at line %d", line)
		}

		leftDone := lerr == io.EOF
		rightDone := rerr == io.EOF
		switch {
		case leftDone && rightDone:
			return models.Equal("text matches")
		case leftDone || rightDone:
			// one side has more lines; the shared prefix already matched
			return models.Unequal(models.ReasonContentAtLine, "text differs at line %d", line+1)
		}

		// an overlong line is compared in buffer-sized chunks
		if len(lchunk) > 0 && lchunk[len(lchunk)-1] == '\n' {
			line++
		}
	}
}

func (s *TextStrategy) lineReader(r io.Reader) *bufio.Reader {
	if s.opts.normalizing() {
		// decodes UTF-16 with a byte order mark and strips a UTF-8 one
		r = transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	}
	return bufio.NewReaderSize(r, s.bufferSize)
}

// maxNormalizedLine bounds the reassembly of a line longer than the read
// buffer. Longer lines are compared in chunks without normalization.
const maxNormalizedLine = 1 << 20

// readLine returns the next line, or the next buffer-sized chunk of an
// overlong one. When normalizing, overlong lines are reassembled in scratch
// so trailing space and dates are seen whole.
func (s *TextStrategy) readLine(r *bufio.Reader, scratch *[]byte) ([]byte, error) {
	chunk, err := r.ReadSlice('\n')
	if !s.opts.normalizing() || !errors.Is(err, bufio.ErrBufferFull) {
		return chunk, err
	}
	buf := append((*scratch)[:0], chunk...)
	for errors.Is(err, bufio.ErrBufferFull) && len(buf) < maxNormalizedLine {
		chunk, err = r.ReadSlice('\n')
		buf = append(buf, chunk...)
	}
	*scratch = buf
	return buf, err
}

func (s *TextStrategy) readError(e *storage.Entry, err error) error {
	if err == nil || err == io.EOF || errors.Is(err, bufio.ErrBufferFull) {
		return nil
	}
	return &models.StrategyError{Strategy: s.Name(), Path: e.Path(), Err: err}
}

// normalize applies the enabled normalizations to a complete line. Chunks
// of an overlong line are compared as they are.
func (s *TextStrategy) normalize(n int, chunk []byte, err error) []byte {
	complete := err == io.EOF || (len(chunk) > 0 && chunk[len(chunk)-1] == '\n')
	if !s.opts.normalizing() || !complete {
		return chunk
	}

	line := bytes.TrimSuffix(chunk, []byte("\n"))
	if s.opts.IgnoreTrailingSpace {
		line = bytes.TrimRight(line, " \t\r")
	}
	if s.opts.BlotDates {
		line = BlotDates(line)
	}
	for _, rule := range s.opts.Rules {
		line = rule(n, line)
	}
	return line
}
