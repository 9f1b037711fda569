package compare

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// generatorScanWidth is how much of each leading line is searched for a
// generator banner
const generatorScanWidth = 132

// Generator describes a family of generated build files: how to recognize
// one and which of its lines vary between otherwise identical builds
type Generator struct {
	Name string
	// Match reports whether a base name belongs to the family and returns
	// the banner its leading lines must contain
	Match func(base string) (banner string, ok bool)
	// Lines is the number of leading lines searched for the banner
	Lines int
	Rules []LineRule
}

func nameSuffix(s, banner string) func(string) (string, bool) {
	return func(base string) (string, bool) { return banner, strings.HasSuffix(base, s) }
}

func baseNames(banners map[string]string) func(string) (string, bool) {
	return func(base string) (string, bool) {
		b, ok := banners[base]
		return b, ok
	}
}

func replaceRule(re *regexp.Regexp, repl string) LineRule {
	return func(_ int, line []byte) []byte { return re.ReplaceAll(line, []byte(repl)) }
}

func blotRule(_ int, line []byte) []byte { return BlotDates(line) }

// DefaultGenerators are the build file families masked by
// --build-normalizers
var DefaultGenerators = []Generator{
	{
		Name:  "automake",
		Match: nameSuffix("Makefile", "generated by automake"),
		Lines: 5,
		Rules: []LineRule{
			blotRule,
			replaceRule(regexp.MustCompile(`^MODVERSION = .*$`), "MODVERSION = ..."),
			replaceRule(regexp.MustCompile(`^BUILDINFO = .*$`), "BUILDINFO = ..."),
		},
	},
	{
		Name: "autoconf",
		Match: baseNames(map[string]string{
			"config.log":    "generated by GNU Autoconf",
			"config.status": "Generated by configure.",
			"config.h":      "Generated from config.h.in by configure.",
		}),
		Lines: 8,
		Rules: []LineRule{
			blotRule,
			// compiler temporaries such as /tmp/ccA1b2C3.o
			replaceRule(regexp.MustCompile(`/cc.{6}\.([os])`), "/cc------.$1"),
			replaceRule(regexp.MustCompile(`MODVERSION.*$`), "MODVERSION..."),
		},
	},
	{
		Name: "kconfig",
		Match: baseNames(map[string]string{
			"auto.conf":  "Automatically generated make config: don't edit",
			"autoconf.h": "Automatically generated C config: don't edit",
		}),
		Lines: 8,
		Rules: []LineRule{
			// the generation timestamp
			func(n int, line []byte) []byte {
				if n == 4 {
					return nil
				}
				return line
			},
		},
	},
}

// GeneratedTextStrategy compares text, first masking the volatile lines of
// recognized generated build files. A file is recognized by its name and a
// banner near its top, on both sides.
type GeneratedTextStrategy struct {
	text       *TextStrategy
	generators []Generator
}

// NewGeneratedTextStrategy wraps text with the given generator families
func NewGeneratedTextStrategy(text *TextStrategy, generators []Generator) *GeneratedTextStrategy {
	return &GeneratedTextStrategy{text: text, generators: generators}
}

// Name returns the strategy name
func (s *GeneratedTextStrategy) Name() string { return "generated-text" }

// Compare compares with the rules of a recognized family, or as plain text
func (s *GeneratedTextStrategy) Compare(ctx context.Context, streams *storage.Streams, left, right *storage.Entry) models.Verdict {
	if len(s.candidates(left)) == 0 {
		return s.text.Compare(ctx, streams, left, right)
	}
	if v, ok := sameFileOrEmpty(streams, left, right); ok {
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

func (s *GeneratedTextStrategy) compareReaders(ctx context.Context, left, right *storage.Entry, lr, rr io.Reader) models.Verdict {
	candidates := s.candidates(left)
	if len(candidates) == 0 {
		return s.text.compareReaders(ctx, left, right, lr, rr)
	}

	lb := bufio.NewReaderSize(lr, s.text.bufferSize)
	rb := bufio.NewReaderSize(rr, s.text.bufferSize)
	lhead := peekLines(lb)
	rhead := peekLines(rb)

	for _, g := range candidates {
		banner, _ := g.Match(path.Base(left.Name()))
		if hasBanner(lhead, g.Lines, banner) && hasBanner(rhead, g.Lines, banner) {
			return s.text.WithRules(g.Rules...).compareReaders(ctx, left, right, lb, rb)
		}
	}
	return s.text.compareReaders(ctx, left, right, lb, rb)
}

// candidates returns the families whose names match e
func (s *GeneratedTextStrategy) candidates(e *storage.Entry) []Generator {
	base := path.Base(e.Name())
	var out []Generator
	for _, g := range s.generators {
		if _, ok := g.Match(base); ok {
			out = append(out, g)
		}
	}
	return out
}

// peekLines returns the buffered start of r without consuming it
func peekLines(r *bufio.Reader) []byte {
	head, _ := r.Peek(r.Size())
	return head
}

func hasBanner(head []byte, lines int, banner string) bool {
	for i := 0; i < lines && len(head) > 0; i++ {
		line := head
		if j := bytes.IndexByte(head, '\n'); j >= 0 {
			line, head = head[:j], head[j+1:]
		} else {
			head = nil
		}
		if len(line) > generatorScanWidth {
			line = line[:generatorScanWidth]
		}
		if bytes.Contains(line, []byte(banner)) {
			return true
		}
	}
	return false
}
