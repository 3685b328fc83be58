package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"sqrt-go/internal/config"
	"sqrt-go/internal/database"
	"sqrt-go/internal/encryption"
	"sqrt-go/internal/fetch"
	"sqrt-go/internal/fs"
	"sqrt-go/internal/location"
	"sqrt-go/internal/model"
	"sqrt-go/internal/schedule"
	"sqrt-go/internal/sqrt"
	"sqrt-go/internal/vault"
	"sqrt-go/internal/watch"
)

// Steps of the aw job that can be run on their own from the CLI.
const (
	StepAwAndroid     = "aw-android"
	StepAwPostprocess = "aw-postprocess"
	StepAwIntervals   = "aw-intervals"
)

// SyncAll runs every job in JobNames order.
const SyncAll = "all"

// ErrNoVault is returned by archive operations when no vault is configured.
var ErrNoVault = errors.New("no vault configured")

// SqrtApp is the application layer between the CLI and SqrtService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, records job runs and manages the DB
// lifecycle on Close.
type SqrtApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	fsmgr     sqrt.FilesystemManager
	vault     sqrt.Vault
	encryptor sqrt.Encryptor
	service   *sqrt.SqrtService
	logger    *slog.Logger
	logFile   io.Closer

	// jobs serializes runs so the scheduler and the watcher never ingest
	// concurrently.
	jobs sync.Mutex
}

// NewSqrtApp creates a fully wired SqrtApp from the given config.
// The caller must call Close when done.
func NewSqrtApp(ctx context.Context, cfg *config.Config) (*SqrtApp, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, cfg.Log, level, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &SqrtApp{cfg: cfg, logger: logger, logFile: logFile}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *SqrtApp) wire(ctx context.Context) error {
	cfg := a.cfg
	a.fsmgr = fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db
	if cfg.Database.Type == "memory" {
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating memory database: %w", err)
		}
	}
	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date (run `sqrt db migrate`): %w", err)
	}

	// The first vault receives archives; without one the archive job is skipped.
	if len(cfg.Vaults) > 0 {
		v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			return fmt.Errorf("creating vault: %w", err)
		}
		a.vault = v
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.encryptor = enc

	var locator sqrt.LocationResolver
	matcher, err := location.NewMatcherFromConfig(cfg.Location)
	if err != nil {
		return fmt.Errorf("loading location tables: %w", err)
	}
	if matcher != nil {
		locator = matcher
	}

	var fetcher sqrt.DumpFetcher
	if cfg.Waka.APIKey != "" {
		client, err := fetch.NewWakaClient(cfg.Waka)
		if err != nil {
			return fmt.Errorf("creating wakatime client: %w", err)
		}
		fetcher = client
	}

	settings, err := SettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	a.service = sqrt.NewSqrtService(db, a.fsmgr, a.vault, enc, locator, fetcher, settings,
		&slogAdapter{l: a.logger}, sqrt.RealClock{})
	if cfg.Youtube.APIKey != "" {
		client, err := fetch.NewYoutubeClient(cfg.Youtube)
		if err != nil {
			return fmt.Errorf("creating youtube client: %w", err)
		}
		a.service.SetVideoCatalog(client)
	}
	return nil
}

// Config returns the config the app was built from.
func (a *SqrtApp) Config() *config.Config {
	return a.cfg
}

// Logger returns the sqrt.Logger of the app, for the daemon and the watcher.
func (a *SqrtApp) Logger() sqrt.Logger {
	return &slogAdapter{l: a.logger}
}

// track records a run in sync_operations. The final status is written even
// when ctx was cancelled during the run.
func (a *SqrtApp) track(ctx context.Context, name, parameters string, run func(context.Context) error) error {
	op := NewOperation(name, parameters)
	dbOp, err := a.db.CreateSyncOperation(ctx, op.Name, op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting sync operation: %w", err)
	}
	op.ID = dbOp.ID

	runErr := run(ctx)
	op.Finish(runErr)
	if err := a.db.FinishSyncOperation(context.WithoutCancel(ctx), op.ID, op.Status); err != nil {
		return errors.Join(runErr, fmt.Errorf("finishing sync operation: %w", err))
	}
	return runErr
}

// RunJob runs one job of sqrt.JobNames. Unless force is set, a job that
// already succeeded today is skipped.
func (a *SqrtApp) RunJob(ctx context.Context, name string, force bool) error {
	if !slices.Contains(sqrt.JobNames, name) {
		return &sqrt.UnknownJobError{Name: name}
	}

	a.jobs.Lock()
	defer a.jobs.Unlock()

	if !force {
		ran, err := a.service.RanToday(ctx, name)
		if err != nil {
			return err
		}
		if ran {
			a.logger.Info("job already ran today, skipped", "job", name)
			return nil
		}
	}

	a.logger.Info("job started", "job", name, "force", force)
	err := a.track(ctx, name, "", func(ctx context.Context) error {
		return a.service.RunJob(ctx, name)
	})
	if err != nil {
		a.logger.Error("job failed", "job", name, "error", err)
		return err
	}
	a.logger.Info("job finished", "job", name)
	return nil
}

// RunStep runs a single step of the aw job. Steps are always forced.
func (a *SqrtApp) RunStep(ctx context.Context, step string) error {
	var run func(context.Context) error
	switch step {
	case StepAwAndroid:
		run = func(ctx context.Context) error {
			report, err := a.service.SyncAndroid(ctx)
			if err != nil {
				return err
			}
			return report.Err()
		}
	case StepAwPostprocess:
		run = func(ctx context.Context) error {
			report, err := a.service.ReconcileActivity(ctx)
			if report != nil {
				a.logger.Info("activity reconciled", "days", len(report.Days), "intervals", report.Intervals)
			}
			return err
		}
	case StepAwIntervals:
		run = func(ctx context.Context) error {
			_, err := a.service.ComputeAppTime(ctx)
			return err
		}
	default:
		return &sqrt.UnknownJobError{Name: step}
	}

	a.jobs.Lock()
	defer a.jobs.Unlock()
	return a.track(ctx, step, "", run)
}

// Sync runs a job, a single aw step, or every job for SyncAll.
// With SyncAll a failing job does not stop the following ones.
func (a *SqrtApp) Sync(ctx context.Context, source string, force bool) error {
	switch source {
	case SyncAll:
		var errs []error
		for _, name := range sqrt.JobNames {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			if err := a.RunJob(ctx, name, force); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		return errors.Join(errs...)
	case StepAwAndroid, StepAwPostprocess, StepAwIntervals:
		return a.RunStep(ctx, source)
	}
	return a.RunJob(ctx, source, force)
}

// CheckHash reports whether the file at rawPath changed since its hash was saved.
func (a *SqrtApp) CheckHash(ctx context.Context, rawPath string) (bool, error) {
	res, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.Hasher().IsUpdated(ctx, res)
}

// SaveHash marks the file at rawPath as processed.
func (a *SqrtApp) SaveHash(ctx context.Context, rawPath string) error {
	res, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	return a.track(ctx, "hash-save", res.ID(), func(ctx context.Context) error {
		return a.service.Hasher().SaveHash(ctx, res)
	})
}

// ToggleHash flips the processed state of the file at rawPath and returns
// whether it is now considered updated.
func (a *SqrtApp) ToggleHash(ctx context.Context, rawPath string) (bool, error) {
	res, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}
	var updated bool
	err = a.track(ctx, "hash-toggle", res.ID(), func(ctx context.Context) error {
		var err error
		updated, err = a.service.Hasher().ToggleHash(ctx, res)
		return err
	})
	return updated, err
}

// HashStatuses lists every stored hash with its state.
func (a *SqrtApp) HashStatuses(ctx context.Context) ([]*sqrt.HashStatus, error) {
	return a.service.Hasher().Statuses(ctx)
}

// CleanupHashes drops the hashes of deleted files.
func (a *SqrtApp) CleanupHashes(ctx context.Context) (int, error) {
	var removed int
	err := a.track(ctx, "hash-cleanup", "", func(ctx context.Context) error {
		var err error
		removed, err = a.service.Hasher().Cleanup(ctx)
		return err
	})
	return removed, err
}

// GetHistory returns the most recent job runs.
func (a *SqrtApp) GetHistory(ctx context.Context, limit int) ([]*model.SyncOperation, error) {
	return a.service.GetHistory(ctx, limit)
}

// PlanArchive returns the groups the next archive run would store.
func (a *SqrtApp) PlanArchive(ctx context.Context) ([]*sqrt.ArchiveGroup, error) {
	return a.service.PlanArchive(ctx)
}

// ArchiveKey returns the base vault key of a planned group.
func (a *SqrtApp) ArchiveKey(g *sqrt.ArchiveGroup) string {
	return a.service.ArchiveKey(g)
}

// ValidateVault checks that the archive vault is reachable.
func (a *SqrtApp) ValidateVault(ctx context.Context) error {
	if a.vault == nil {
		return ErrNoVault
	}
	return a.vault.ValidateSetup(ctx)
}

// ArchiveEncrypted reports whether the archive under key needs a passphrase.
func (a *SqrtApp) ArchiveEncrypted(key string) bool {
	return a.encryptor != nil && strings.HasSuffix(key, a.encryptor.Extension())
}

// GetArchive writes the archive stored under key to w. Encrypted archives
// are decrypted with the private key unlocked by passphrase.
func (a *SqrtApp) GetArchive(ctx context.Context, key, passphrase string, w io.Writer) error {
	if a.vault == nil {
		return ErrNoVault
	}
	var dc sqrt.DecryptionContext
	if a.ArchiveEncrypted(key) {
		var err error
		if dc, err = a.encryptor.Unlock(passphrase); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.service.RetrieveArchive(ctx, key, dc, w)
}

// ScheduledJobs returns the cron schedule of the daemon.
func (a *SqrtApp) ScheduledJobs() []schedule.Job {
	return schedule.JobsFromConfig(a.cfg.Schedule)
}

// WatchFolders returns the input folders of every file-based job.
// The WakaTime dump folder is left out: it is written by the waka job itself.
func (a *SqrtApp) WatchFolders() []watch.Folder {
	var folders []watch.Folder
	add := func(dir, job string) {
		if dir == "" || dir == "." {
			return
		}
		for _, f := range folders {
			if f.Dir == dir && f.Job == job {
				return
			}
		}
		folders = append(folders, watch.Folder{Dir: dir, Job: job})
	}

	cfg := a.cfg
	add(cfg.Aw.LogsFolder, sqrt.JobAw)
	if cfg.Aw.AndroidFile != "" {
		add(filepath.Dir(cfg.Aw.AndroidFile), sqrt.JobAw)
	}
	add(cfg.Mpd.LogFolder, sqrt.JobMpd)
	if cfg.Mpd.LibraryCSV != "" {
		add(filepath.Dir(cfg.Mpd.LibraryCSV), sqrt.JobMpd)
	}
	if cfg.Sleep.File != "" {
		add(filepath.Dir(cfg.Sleep.File), sqrt.JobSleep)
	}
	if cfg.Messengers.TelegramFile != "" {
		add(filepath.Dir(cfg.Messengers.TelegramFile), sqrt.JobMessengers)
	}
	if cfg.Messengers.MappingFile != "" {
		add(filepath.Dir(cfg.Messengers.MappingFile), sqrt.JobMessengers)
	}
	return folders
}

// Filesystem returns the filesystem manager shared by every job.
func (a *SqrtApp) Filesystem() sqrt.FilesystemManager {
	return a.fsmgr
}

// WatchDebounce returns the configured quiet period of the watcher.
func (a *SqrtApp) WatchDebounce() time.Duration {
	return time.Duration(a.cfg.Watch.DebounceSeconds) * time.Second
}

// Close closes all resources and returns the first error encountered.
func (a *SqrtApp) Close() error {
	var firstErr error

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}

	return firstErr
}
