package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-root file listing extra ignore patterns.
const IgnoreFileName = ".sqrtignore"

// defaultIgnorePatterns apply to every root.
var defaultIgnorePatterns = []string{IgnoreFileName, "*.tmp", ".*.swp"}

type patternKind int

const (
	matchBase patternKind = iota // glob against the file name
	matchPath                    // glob against the slash-separated relative path
	matchDir                     // glob against every parent directory name
)

type ignorePattern struct {
	glob   string
	kind   patternKind
	negate bool
}

// IgnoreMatcher decides whether a path relative to a root is excluded.
// Rules are evaluated in order and the last matching one wins, so a rule
// starting with '!' re-includes what an earlier rule excluded.
//
//	*.log    any file named *.log
//	tmp/     any file below a directory named tmp
//	aw/a.csv a file at exactly that relative path
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw patterns, dropping blanks and '#' comments.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{}
		if strings.HasPrefix(raw, "!") {
			p.negate = true
			raw = raw[1:]
		}
		switch {
		case strings.HasSuffix(raw, "/"):
			p.kind = matchDir
			p.glob = strings.TrimSuffix(raw, "/")
		case strings.Contains(raw, "/"):
			p.kind = matchPath
			p.glob = strings.TrimPrefix(raw, "/")
		default:
			p.kind = matchBase
			p.glob = raw
		}
		if p.glob == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Match reports whether relativePath is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	rel := filepath.ToSlash(relativePath)
	parts := strings.Split(rel, "/")

	ignored := false
	for _, p := range m.patterns {
		if p.matches(rel, parts) {
			ignored = !p.negate
		}
	}
	return ignored
}

func (p ignorePattern) matches(rel string, parts []string) bool {
	switch p.kind {
	case matchPath:
		ok, _ := filepath.Match(p.glob, rel)
		return ok
	case matchDir:
		for _, dir := range parts[:len(parts)-1] {
			if ok, _ := filepath.Match(p.glob, dir); ok {
				return true
			}
		}
		return false
	default:
		ok, _ := filepath.Match(p.glob, parts[len(parts)-1])
		return ok
	}
}

// ParseIgnoreFile returns the lines of an ignore file, or nil if it does
// not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
