// Package watch re-runs sync jobs when their input folders change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sqrt-go/internal/sqrt"
)

// Runner executes a named job. force bypasses the "already ran today" check.
type Runner interface {
	RunJob(ctx context.Context, name string, force bool) error
}

// Folder ties an input directory to the job that loads it.
type Folder struct {
	Dir string
	Job string
}

// Ignorer reports whether a file under root is excluded by ignore patterns.
type Ignorer interface {
	IsIgnored(res *sqrt.Resource, root string) (bool, error)
}

var watchedExtensions = []string{".csv", ".json"}

// Watcher runs the owning job of a folder once writes to its data files
// have been quiet for the debounce delay.
type Watcher struct {
	fsw      *fsnotify.Watcher
	runner   Runner
	ignorer  Ignorer
	logger   sqrt.Logger
	debounce time.Duration
	jobs     map[string][]string // dir -> jobs
}

// New creates a watcher for folders. Folders that do not exist are skipped
// with a warning when Run starts. Files matched by ignorer never trigger a
// run; a nil ignorer excludes nothing.
func New(folders []Folder, runner Runner, ignorer Ignorer, debounce time.Duration, logger sqrt.Logger) (*Watcher, error) {
	if logger == nil {
		logger = sqrt.NewNopLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	jobs := make(map[string][]string)
	for _, f := range folders {
		if f.Dir == "" || f.Job == "" {
			continue
		}
		dir, err := filepath.Abs(f.Dir)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", f.Dir, err)
		}
		if !slices.Contains(jobs[dir], f.Job) {
			jobs[dir] = append(jobs[dir], f.Job)
		}
	}
	return &Watcher{fsw: fsw, runner: runner, ignorer: ignorer, logger: logger, debounce: debounce, jobs: jobs}, nil
}

// Dirs returns the watched directories in sorted order.
func (w *Watcher) Dirs() []string {
	dirs := make([]string, 0, len(w.jobs))
	for d := range w.jobs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Run watches until ctx is done. Jobs run one at a time on the calling
// goroutine; changes seen while a job runs schedule another run.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	watched := 0
	for _, dir := range w.Dirs() {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Warn("watch folder missing", "dir", dir)
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logger.Info("watching", "dir", dir, "jobs", strings.Join(w.jobs[dir], ","))
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no folder to watch")
	}

	fired := make(chan string, len(w.jobs)*4)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) || w.ignored(ev.Name) {
				continue
			}
			for _, job := range w.jobs[filepath.Dir(ev.Name)] {
				w.logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String(), "job", job)
				if t, ok := timers[job]; ok {
					t.Reset(w.debounce)
					continue
				}
				job := job
				timers[job] = time.AfterFunc(w.debounce, func() {
					select {
					case fired <- job:
					case <-ctx.Done():
					}
				})
			}

		case job := <-fired:
			delete(timers, job)
			w.logger.Info("running job after change", "job", job)
			if err := w.runner.RunJob(ctx, job, true); err != nil {
				w.logger.Error("job failed", "job", job, "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// ignored checks path against the ignore patterns of its folder. A file
// that is already gone counts as ignored.
func (w *Watcher) ignored(path string) bool {
	if w.ignorer == nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	ignored, err := w.ignorer.IsIgnored(sqrt.NewResource(path, info), filepath.Dir(path))
	if err != nil {
		w.logger.Warn("checking ignore rules", "file", path, "error", err)
		return false
	}
	return ignored
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(watchedExtensions, strings.ToLower(filepath.Ext(name)))
}
