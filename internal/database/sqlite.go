package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"sqrt-go/internal/database/migrations"
	"sqrt-go/internal/database/queries"
	"sqrt-go/internal/model"
	"sqrt-go/internal/sqrt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	songCacheExpiration = 30 * time.Minute
	songCacheCleanup    = 10 * time.Minute
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *queries.Queries
	path    string
	songs   *cache.Cache // file -> song id
	clock   sqrt.Clock
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	s := NewSQLiteDatabaseFromDB(db)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: queries.New(db),
		songs:   cache.New(songCacheExpiration, songCacheCleanup),
		clock:   sqrt.RealClock{},
	}
}

// SetClock replaces the clock used for hash and operation timestamps.
func (s *SQLiteDatabase) SetClock(clock sqrt.Clock) {
	s.clock = clock
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: jobs never overlap, PRAGMAs stay applied and
	// ":memory:" databases are not split across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Hash operations

func (s *SQLiteDatabase) GetResourceHash(ctx context.Context, resourceID string) (*model.ResourceHash, error) {
	h, err := s.queries.GetHash(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding hash: %w", err)
	}
	return toResourceHash(h), nil
}

func (s *SQLiteDatabase) PutResourceHash(ctx context.Context, resourceID, hash string) error {
	err := s.queries.UpsertHash(ctx, queries.UpsertHashParams{
		ResourceID:  resourceID,
		ContentHash: hash,
		UpdatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upserting hash: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteResourceHash(ctx context.Context, resourceID string) error {
	if err := s.queries.DeleteHash(ctx, resourceID); err != nil {
		return fmt.Errorf("deleting hash: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListResourceHashes(ctx context.Context) ([]*model.ResourceHash, error) {
	hashes, err := s.queries.ListHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hashes: %w", err)
	}
	result := make([]*model.ResourceHash, len(hashes))
	for i := range hashes {
		result[i] = toResourceHash(hashes[i])
	}
	return result, nil
}

func toResourceHash(h queries.Hash) *model.ResourceHash {
	return &model.ResourceHash{ResourceID: h.ResourceID, ContentHash: h.ContentHash, UpdatedAt: h.UpdatedAt}
}

// Activity operations

func (s *SQLiteDatabase) CountWindowEventsByDay(ctx context.Context) ([]model.DayCount, error) {
	counts, err := s.queries.CountWindowEventsByDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting window events: %w", err)
	}
	return toDayCounts(counts), nil
}

func (s *SQLiteDatabase) ListNotAfkCheckpoints(ctx context.Context) ([]model.DayCount, error) {
	counts, err := s.queries.ListNotAfkMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	return toDayCounts(counts), nil
}

func toDayCounts(counts []queries.DayCount) []model.DayCount {
	result := make([]model.DayCount, len(counts))
	for i, c := range counts {
		result[i] = model.DayCount{Date: c.Date, Count: c.Count}
	}
	return result
}

func (s *SQLiteDatabase) ReplaceNotAfkCheckpoints(ctx context.Context, counts []model.DayCount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	if err := qtx.DeleteNotAfkMeta(ctx); err != nil {
		return fmt.Errorf("clearing checkpoints: %w", err)
	}
	for _, c := range counts {
		if err := qtx.InsertNotAfkMeta(ctx, queries.DayCount{Date: c.Date, Count: c.Count}); err != nil {
			return fmt.Errorf("inserting checkpoint %s: %w", c.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func timeRange(start, end time.Time) queries.TimeRangeParams {
	return queries.TimeRangeParams{Start: model.FormatTime(start), End: model.FormatTime(end)}
}

func (s *SQLiteDatabase) FindWindowEvents(ctx context.Context, start, end time.Time) ([]*model.WindowEvent, error) {
	rows, err := s.queries.ListWindowEventsOverlapping(ctx, timeRange(start, end))
	if err != nil {
		return nil, fmt.Errorf("finding window events: %w", err)
	}
	result := make([]*model.WindowEvent, 0, len(rows))
	for _, r := range rows {
		base, err := bucketEvent(r.ID, r.BucketID, r.Hostname, r.Location, r.Timestamp, r.Duration)
		if err != nil {
			return nil, err
		}
		result = append(result, &model.WindowEvent{BucketEvent: base, App: r.App, Title: r.Title})
	}
	return result, nil
}

func (s *SQLiteDatabase) FindAfkEvents(ctx context.Context, start, end time.Time) ([]*model.AfkEvent, error) {
	rows, err := s.queries.ListAfkEventsOverlapping(ctx, timeRange(start, end))
	if err != nil {
		return nil, fmt.Errorf("finding afk events: %w", err)
	}
	result := make([]*model.AfkEvent, 0, len(rows))
	for _, r := range rows {
		base, err := bucketEvent(r.ID, r.BucketID, r.Hostname, r.Location, r.Timestamp, r.Duration)
		if err != nil {
			return nil, err
		}
		result = append(result, &model.AfkEvent{BucketEvent: base, Status: r.Status})
	}
	return result, nil
}

func bucketEvent(id, bucketID, hostname, location, timestamp string, duration float64) (model.BucketEvent, error) {
	ts, err := model.ParseTime(timestamp)
	if err != nil {
		return model.BucketEvent{}, fmt.Errorf("parsing timestamp of %s: %w", id, err)
	}
	return model.BucketEvent{
		ID:        id,
		BucketID:  bucketID,
		Hostname:  hostname,
		Location:  location,
		Timestamp: ts,
		Duration:  duration,
	}, nil
}

func (s *SQLiteDatabase) ReplaceEffectiveIntervals(ctx context.Context, start, end time.Time, intervals []*model.EffectiveInterval) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	if err := qtx.DeleteNotAfkWindowsInRange(ctx, timeRange(start, end)); err != nil {
		return fmt.Errorf("deleting intervals: %w", err)
	}
	for _, iv := range intervals {
		err := qtx.UpsertNotAfkWindow(ctx, queries.WindowEventRow{
			ID:        iv.ID,
			BucketID:  iv.BucketID,
			Hostname:  iv.Hostname,
			Location:  iv.Location,
			Timestamp: model.FormatTime(iv.Timestamp),
			Duration:  iv.Duration,
			App:       iv.App,
			Title:     iv.Title,
		})
		if err != nil {
			return fmt.Errorf("upserting interval %s: %w", iv.ID, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindEffectiveIntervalsByApps(ctx context.Context, apps []string) ([]*model.EffectiveInterval, error) {
	var result []*model.EffectiveInterval
	for _, app := range apps {
		rows, err := s.queries.ListNotAfkWindowsByApp(ctx, app)
		if err != nil {
			return nil, fmt.Errorf("finding intervals of %s: %w", app, err)
		}
		for _, r := range rows {
			ts, err := model.ParseTime(r.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("parsing timestamp of %s: %w", r.ID, err)
			}
			result = append(result, &model.EffectiveInterval{
				ID:        r.ID,
				BucketID:  r.BucketID,
				Hostname:  r.Hostname,
				Location:  r.Location,
				Timestamp: ts,
				Duration:  r.Duration,
				App:       r.App,
				Title:     r.Title,
			})
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// Music operations

func (s *SQLiteDatabase) FindSongIDByFile(ctx context.Context, file string) (int64, error) {
	if id, ok := s.songs.Get(file); ok {
		return id.(int64), nil
	}
	id, err := s.queries.GetSongIDByFile(ctx, file)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil // Not found
		}
		return 0, fmt.Errorf("finding song: %w", err)
	}
	s.songs.Set(file, id, cache.DefaultExpiration)
	return id, nil
}

// YouTube operations

func (s *SQLiteDatabase) HasYoutubeVideo(ctx context.Context, id string) (bool, error) {
	n, err := s.queries.CountYoutubeVideo(ctx, id)
	if err != nil {
		return false, fmt.Errorf("finding video: %w", err)
	}
	return n > 0, nil
}

// Sync operations

func (s *SQLiteDatabase) CreateSyncOperation(ctx context.Context, operation, parameters string) (*model.SyncOperation, error) {
	id, err := s.queries.InsertSyncOperation(ctx, queries.InsertSyncOperationParams{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating sync operation: %w", err)
	}
	op, err := s.queries.GetSyncOperation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading sync operation: %w", err)
	}
	return toSyncOperation(op), nil
}

func (s *SQLiteDatabase) FinishSyncOperation(ctx context.Context, id int64, status string) error {
	err := s.queries.FinishSyncOperation(ctx, queries.FinishSyncOperationParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now().UTC(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing sync operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListSyncOperations(ctx context.Context, limit int) ([]*model.SyncOperation, error) {
	ops, err := s.queries.ListSyncOperations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	result := make([]*model.SyncOperation, len(ops))
	for i := range ops {
		result[i] = toSyncOperation(ops[i])
	}
	return result, nil
}

func (s *SQLiteDatabase) FindLastSuccessfulSyncOperation(ctx context.Context, operation string) (*model.SyncOperation, error) {
	op, err := s.queries.GetLastSuccessfulSyncOperation(ctx, operation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Never succeeded
		}
		return nil, fmt.Errorf("finding last sync operation: %w", err)
	}
	return toSyncOperation(op), nil
}

func toSyncOperation(op queries.SyncOperation) *model.SyncOperation {
	return &model.SyncOperation{
		ID:         op.ID,
		Operation:  op.Operation,
		Parameters: op.Parameters,
		StartedAt:  op.StartedAt,
		FinishedAt: op.FinishedAt,
		Status:     op.Status,
	}
}

// Path returns the database file path, empty for wrapped connections.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the applied and the latest schema versions.
func (s *SQLiteDatabase) MigrationStatus() (*migrations.Status, error) {
	return migrations.GetStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements sqrt.Database interface
var _ sqrt.Database = (*SQLiteDatabase)(nil)
