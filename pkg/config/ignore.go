package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

// DefaultIgnoreFile is read from the working directory, when it exists,
// if no ignore files are configured
const DefaultIgnoreFile = ".semcmpignore"

// IgnorePatterns returns Ignore followed by the patterns of every ignore
// file. Configured files must exist; the default one is optional.
func (c *Config) IgnorePatterns() ([]string, error) {
	patterns := slices.Clone(c.Ignore)

	files, optional := c.IgnoreFiles, false
	if len(files) == 0 {
		files, optional = []string{DefaultIgnoreFile}, true
	}
	for _, path := range files {
		lines, err := ReadIgnoreFile(path)
		if optional && errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, lines...)
	}
	return patterns, nil
}

// ReadIgnoreFile returns the patterns of an ignore file, one per line.
// Lines are trimmed; blank lines and lines starting with '#' are skipped.
func ReadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}
	return patterns, nil
}
