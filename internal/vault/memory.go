package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"sqrt-go/internal/sqrt"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It is useful for testing and safe for concurrent use.
type MemoryVault struct {
	name     string
	archives map[string][]byte
	mu       sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		archives: make(map[string][]byte),
	}
}

// PutArchive stores the archive read from r under key, replacing any
// previous one.
func (m *MemoryVault) PutArchive(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if err := checkSize(size, int64(len(data))); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[key] = data
	return nil
}

// GetArchive writes the archive stored under key to w.
func (m *MemoryVault) GetArchive(ctx context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.archives[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// HasArchive reports whether an archive exists under key.
func (m *MemoryVault) HasArchive(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.archives[key]
	return ok, nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryVault) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.archives))
	for k := range m.archives {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements sqrt.Vault interface
var _ sqrt.Vault = (*MemoryVault)(nil)
