package engine

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides which walked names are ignored. Patterns support:
//   - Simple glob patterns: *.tmp, *.log (matched against the base name)
//   - Path patterns: build/*, **/test/* (matched against the relative path)
//   - Directory patterns: .git/, node_modules/ (any path component)
//
// Paths inside archives include the archive's own path, so **/*.o also
// reaches members of nested archives.
type Matcher struct {
	patterns []string
}

// NewMatcher validates the patterns and creates a matcher
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(strings.TrimSuffix(p, "/")) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match reports whether relPath is ignored
func (m *Matcher) Match(relPath string) bool {
	if m == nil || len(m.patterns) == 0 || relPath == "" {
		return false
	}

	base := path.Base(relPath)
	for _, pattern := range m.patterns {
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			if matchComponent(dir, relPath) {
				return true
			}
			continue
		}
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}

// matchComponent checks every path component and every leading
// sub-path against a directory pattern
func matchComponent(pattern, relPath string) bool {
	parts := strings.Split(relPath, "/")
	for i, part := range parts {
		if ok, _ := doublestar.Match(pattern, part); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, strings.Join(parts[:i+1], "/")); ok {
			return true
		}
	}
	return false
}
