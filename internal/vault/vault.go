// Package vault implements the archive stores that receive compressed
// input files once they have been processed.
package vault

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by GetArchive when no archive exists under a key.
var ErrNotFound = errors.New("archive not found")

// validateKey rejects keys that could escape the vault namespace.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty archive key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid archive key %q", key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("invalid archive key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("invalid archive key %q", key)
		}
	}
	return nil
}

// checkSize verifies the number of bytes read when the caller announced one.
func checkSize(expected, written int64) error {
	if expected >= 0 && written != expected {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, written)
	}
	return nil
}
