package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sqrt-go/internal/sqrt"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	ignore []string // patterns from config, applied under every root

	mu       sync.Mutex
	matchers map[string]*IgnoreMatcher // root -> defaults + config + root ignore file
}

// NewOSFilesystemManager creates a filesystem manager with extra ignore patterns.
func NewOSFilesystemManager(ignore []string) *OSFilesystemManager {
	return &OSFilesystemManager{
		ignore:   ignore,
		matchers: make(map[string]*IgnoreMatcher),
	}
}

// Resolve validates a raw path and returns a Resource.
func (m *OSFilesystemManager) Resolve(rawPath string) (*sqrt.Resource, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	return sqrt.NewResource(absPath, info), nil
}

// Exists reports whether rawPath is a regular file.
func (m *OSFilesystemManager) Exists(rawPath string) (bool, error) {
	info, err := os.Stat(rawPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat path: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Open opens a resource for reading.
func (m *OSFilesystemManager) Open(res *sqrt.Resource) (io.ReadCloser, error) {
	return os.Open(res.ID())
}

// Stat returns fresh file info for a resource.
func (m *OSFilesystemManager) Stat(res *sqrt.Resource) (fs.FileInfo, error) {
	return os.Stat(res.ID())
}

// FindFiles lists regular files under dir whose name matches pattern.
func (m *OSFilesystemManager) FindFiles(dir string, pattern string, recursive bool) ([]*sqrt.Resource, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	// Walk the target of a symlinked root but report paths under root.
	walkRoot := root
	if real, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = real
	}

	var found []*sqrt.Resource
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == walkRoot && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if p != walkRoot && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return err
		}
		found = append(found, sqrt.NewResource(filepath.Join(root, rel), info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID() < found[j].ID() })
	return found, nil
}

// IsIgnored matches the resource path relative to root against the default
// patterns, the configured ones and root's ignore file.
func (m *OSFilesystemManager) IsIgnored(res *sqrt.Resource, root string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, fmt.Errorf("resolving absolute path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, res.ID())
	if err != nil || strings.HasPrefix(rel, "..") {
		return false, fmt.Errorf("%s is not under %s", res.ID(), absRoot)
	}

	matcher, err := m.matcher(absRoot)
	if err != nil {
		return false, err
	}
	return matcher.Match(rel), nil
}

func (m *OSFilesystemManager) matcher(root string) (*IgnoreMatcher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if matcher, ok := m.matchers[root]; ok {
		return matcher, nil
	}
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := append(append(append([]string{}, defaultIgnorePatterns...), m.ignore...), fromFile...)
	matcher := NewIgnoreMatcher(patterns)
	m.matchers[root] = matcher
	return matcher, nil
}

// Create writes r to rawPath through a temp file in the same directory and
// renames it into place, so readers never see a partial file.
func (m *OSFilesystemManager) Create(rawPath string, r io.Reader) (*sqrt.Resource, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sqrt-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing %s: %w", absPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("syncing %s: %w", absPath, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", absPath, err)
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		return nil, fmt.Errorf("renaming into place: %w", err)
	}
	return m.Resolve(absPath)
}

// Remove deletes the resource from disk.
func (m *OSFilesystemManager) Remove(res *sqrt.Resource) error {
	if err := os.Remove(res.ID()); err != nil {
		return fmt.Errorf("removing %s: %w", res.ID(), err)
	}
	return nil
}

// Compile-time check that OSFilesystemManager implements sqrt.FilesystemManager interface
var _ sqrt.FilesystemManager = (*OSFilesystemManager)(nil)
