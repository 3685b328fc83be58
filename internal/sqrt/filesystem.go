package sqrt

import (
	"io"
	"io/fs"
)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Resource.
	// The path must point to a regular file.
	Resolve(rawPath string) (*Resource, error)

	// Exists reports whether a regular file exists at rawPath.
	Exists(rawPath string) (bool, error)

	// Open opens a resource for reading.
	Open(res *Resource) (io.ReadCloser, error)

	// Stat returns fresh file info for a resource.
	Stat(res *Resource) (fs.FileInfo, error)

	// FindFiles returns the regular files under dir whose base name matches
	// the filepath.Match pattern, sorted by path. A missing dir yields no files.
	FindFiles(dir string, pattern string, recursive bool) ([]*Resource, error)

	// IsIgnored reports whether a resource under root matches an ignore pattern.
	IsIgnored(res *Resource, root string) (bool, error)

	// Create atomically writes the content of r to rawPath, creating parent
	// directories as needed, and returns the new resource.
	Create(rawPath string, r io.Reader) (*Resource, error)

	// Remove deletes the resource from disk.
	Remove(res *Resource) error
}
