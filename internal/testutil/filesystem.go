package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	sqrtfs "sqrt-go/internal/fs"
	"sqrt-go/internal/sqrt"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Only regular files are stored; directories exist implicitly.
type MockFilesystemManager struct {
	mu     sync.Mutex
	files  map[string]*MockFile
	ignore []string
}

// NewMockFilesystemManager creates a new mock filesystem. The ignore
// patterns use the syntax of .sqrtignore files.
func NewMockFilesystemManager(ignore ...string) *MockFilesystemManager {
	return &MockFilesystemManager{
		files:  make(map[string]*MockFile),
		ignore: ignore,
	}
}

// AddFile adds a file modified now to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.AddFileWithModTime(path, content, time.Now())
}

// AddFileWithModTime adds a file with an explicit modification time.
func (m *MockFilesystemManager) AddFileWithModTime(path string, content []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[abs(path)] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     modTime,
	}
}

// Content returns the content of a file and whether it exists.
func (m *MockFilesystemManager) Content(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[abs(path)]
	if !ok {
		return nil, false
	}
	return file.Content, true
}

func abs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return p
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*sqrt.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	absPath := abs(rawPath)
	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}
	return sqrt.NewResource(absPath, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Exists(rawPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[abs(rawPath)]
	return ok, nil
}

func (m *MockFilesystemManager) Open(res *sqrt.Resource) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[res.ID()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", res.ID())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Stat(res *sqrt.Resource) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[res.ID()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", res.ID())
	}
	return newMockFileInfo(res.ID(), file), nil
}

func (m *MockFilesystemManager) FindFiles(dir string, pattern string, recursive bool) ([]*sqrt.Resource, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	root := abs(dir)
	var found []*sqrt.Resource
	for path, file := range m.files {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if !recursive && filepath.Dir(rel) != "." {
			continue
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); !ok {
			continue
		}
		found = append(found, sqrt.NewResource(path, newMockFileInfo(path, file)))
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID() < found[j].ID() })
	return found, nil
}

func (m *MockFilesystemManager) IsIgnored(res *sqrt.Resource, root string) (bool, error) {
	rel, err := filepath.Rel(abs(root), res.ID())
	if err != nil || strings.HasPrefix(rel, "..") {
		return false, fmt.Errorf("%s is not under %s", res.ID(), root)
	}
	return sqrtfs.NewIgnoreMatcher(m.ignore).Match(rel), nil
}

func (m *MockFilesystemManager) Create(rawPath string, r io.Reader) (*sqrt.Resource, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	absPath := abs(rawPath)
	m.AddFile(absPath, content)
	return m.Resolve(absPath)
}

func (m *MockFilesystemManager) Remove(res *sqrt.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[res.ID()]; !ok {
		return fmt.Errorf("file not found: %s", res.ID())
	}
	delete(m.files, res.ID())
	return nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func newMockFileInfo(path string, file *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ sqrt.FilesystemManager = (*MockFilesystemManager)(nil)
