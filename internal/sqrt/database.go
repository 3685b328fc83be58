package sqrt

import (
	"context"
	"time"

	"sqrt-go/internal/model"
)

// Batch is a set of rows for one ingest entity.
// Rows must follow the column order of the entity (see model.Entity*).
type Batch struct {
	Entity string
	Rows   [][]any
}

// Database provides an interface for warehouse storage operations.
type Database interface {
	// Hash operations

	// GetResourceHash returns the stored hash of a resource, or nil if none.
	GetResourceHash(ctx context.Context, resourceID string) (*model.ResourceHash, error)

	// PutResourceHash inserts or overwrites the hash of a resource.
	PutResourceHash(ctx context.Context, resourceID, hash string) error

	// DeleteResourceHash removes the hash of a resource.
	DeleteResourceHash(ctx context.Context, resourceID string) error

	// ListResourceHashes returns every stored hash ordered by resource ID.
	ListResourceHashes(ctx context.Context) ([]*model.ResourceHash, error)

	// Ingest writes all batches in one transaction following the static
	// per-entity upsert policy. It returns the number of rows affected.
	// An unknown entity or a row of the wrong width yields ErrSchemaMismatch.
	Ingest(ctx context.Context, batches ...Batch) (int64, error)

	// Activity operations

	// CountWindowEventsByDay returns the live number of window events per date.
	CountWindowEventsByDay(ctx context.Context) ([]model.DayCount, error)

	// ListNotAfkCheckpoints returns the per-date counts of the last reconciliation.
	ListNotAfkCheckpoints(ctx context.Context) ([]model.DayCount, error)

	// ReplaceNotAfkCheckpoints overwrites the reconciliation checkpoints.
	ReplaceNotAfkCheckpoints(ctx context.Context, counts []model.DayCount) error

	// FindWindowEvents returns window events overlapping [start, end).
	FindWindowEvents(ctx context.Context, start, end time.Time) ([]*model.WindowEvent, error)

	// FindAfkEvents returns AFK events overlapping [start, end).
	FindAfkEvents(ctx context.Context, start, end time.Time) ([]*model.AfkEvent, error)

	// ReplaceEffectiveIntervals deletes the intervals starting in [start, end)
	// and upserts the given ones, in one transaction.
	ReplaceEffectiveIntervals(ctx context.Context, start, end time.Time, intervals []*model.EffectiveInterval) error

	// FindEffectiveIntervalsByApps returns intervals of the given apps ordered by timestamp.
	FindEffectiveIntervalsByApps(ctx context.Context, apps []string) ([]*model.EffectiveInterval, error)

	// Music operations

	// FindSongIDByFile returns the library ID of a song file, or 0 if unknown.
	FindSongIDByFile(ctx context.Context, file string) (int64, error)

	// YouTube operations

	// HasYoutubeVideo reports whether the video is already in the catalog.
	HasYoutubeVideo(ctx context.Context, id string) (bool, error)

	// Sync operations

	// CreateSyncOperation records the start of a job run.
	CreateSyncOperation(ctx context.Context, operation, parameters string) (*model.SyncOperation, error)

	// FinishSyncOperation records the outcome of a job run.
	FinishSyncOperation(ctx context.Context, id int64, status string) error

	// ListSyncOperations returns the most recent runs, newest first.
	ListSyncOperations(ctx context.Context, limit int) ([]*model.SyncOperation, error)

	// FindLastSuccessfulSyncOperation returns the latest successful run of an operation, or nil.
	FindLastSuccessfulSyncOperation(ctx context.Context, operation string) (*model.SyncOperation, error)

	// Close closes the database connection.
	Close() error
}
