package sqrt

import (
	"context"
	"io"
)

// Vault stores archives of processed input files.
// All operations stream through io.Reader/io.Writer so large archives are
// never held in memory.
type Vault interface {
	// PutArchive stores an archive under a key such as "aw/logs_2001.tar.gz".
	// size is the number of bytes that will be read from r, or -1 if unknown.
	PutArchive(ctx context.Context, key string, r io.Reader, size int64) error

	// GetArchive writes the archive stored under key to w.
	GetArchive(ctx context.Context, key string, w io.Writer) error

	// HasArchive reports whether an archive exists under key.
	HasArchive(ctx context.Context, key string) (bool, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
