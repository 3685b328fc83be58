package sqrt

import (
	"io/fs"
	"path/filepath"
	"time"
)

// Resource is an input file identified by its absolute path.
// Resources are created by FilesystemManager.Resolve and FindFiles, which
// validate that the path is a regular file and cache its stat info.
type Resource struct {
	id   string
	info fs.FileInfo
}

// NewResource creates a Resource from its components.
// This is primarily for use by FilesystemManager implementations.
func NewResource(absPath string, info fs.FileInfo) *Resource {
	return &Resource{id: absPath, info: info}
}

// ID returns the absolute path that identifies the resource.
func (r *Resource) ID() string { return r.id }

// Name returns the base name of the resource.
func (r *Resource) Name() string { return filepath.Base(r.id) }

// Dir returns the directory containing the resource.
func (r *Resource) Dir() string { return filepath.Dir(r.id) }

// Info returns the stat info cached when the resource was resolved.
func (r *Resource) Info() fs.FileInfo { return r.info }

// ModTime returns the cached modification time.
func (r *Resource) ModTime() time.Time {
	if r.info == nil {
		return time.Time{}
	}
	return r.info.ModTime()
}
