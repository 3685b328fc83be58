// Package schedule runs the sync jobs on their cron schedules.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sqrt-go/internal/config"
	"sqrt-go/internal/sqrt"
)

const stopTimeout = 5 * time.Minute

// Runner executes a named job. force bypasses the "already ran today" check.
type Runner interface {
	RunJob(ctx context.Context, name string, force bool) error
}

// Job binds a job name to a cron expression with a seconds field.
type Job struct {
	Name string
	Spec string
}

// JobsFromConfig returns the scheduled jobs in run order. Jobs with an empty
// expression are disabled.
func JobsFromConfig(cfg config.ScheduleConfig) []Job {
	all := []Job{
		{Name: sqrt.JobWaka, Spec: cfg.Waka},
		{Name: sqrt.JobMpd, Spec: cfg.Mpd},
		{Name: sqrt.JobSleep, Spec: cfg.Sleep},
		{Name: sqrt.JobAw, Spec: cfg.Aw},
		{Name: sqrt.JobMessengers, Spec: cfg.Messengers},
		{Name: sqrt.JobYoutube, Spec: cfg.Youtube},
		{Name: sqrt.JobArchive, Spec: cfg.Archive},
	}
	var jobs []Job
	for _, j := range all {
		if j.Spec != "" {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// Entry is a scheduled job and its next activation.
type Entry struct {
	Name string
	Next time.Time
}

// Scheduler triggers jobs through a Runner. Jobs never overlap: a job whose
// previous run is still going is skipped, and different jobs wait for each
// other since they share the warehouse.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger sqrt.Logger
	names  map[cron.EntryID]string

	mu  sync.Mutex // held while a job runs
	ctx context.Context
}

// New validates every expression and registers the jobs.
func New(runner Runner, jobs []Job, logger sqrt.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = sqrt.NewNopLogger()
	}
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		names:  make(map[cron.EntryID]string),
		ctx:    context.Background(),
	}

	for _, job := range jobs {
		name := job.Name
		id, err := s.cron.AddFunc(job.Spec, func() { s.trigger(name) })
		if err != nil {
			return nil, fmt.Errorf("job %s: invalid schedule %q: %w", name, job.Spec, err)
		}
		s.names[id] = name
	}
	return s, nil
}

// Entries lists the jobs ordered by next activation.
func (s *Scheduler) Entries() []Entry {
	var out []Entry
	for _, e := range s.cron.Entries() {
		out = append(out, Entry{Name: s.names[e.ID], Next: e.Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// Run starts the scheduler and blocks until ctx is done, then waits for the
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	for _, e := range s.Entries() {
		s.logger.Info("job scheduled", "job", e.Name, "next", e.Next.Format(time.RFC3339))
	}

	<-ctx.Done()
	s.logger.Info("stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(stopTimeout):
		s.logger.Warn("timed out waiting for running job")
	}
	return nil
}

func (s *Scheduler) trigger(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.logger.Info("job triggered", "job", name)
	if err := s.runner.RunJob(s.ctx, name, false); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return
	}
	s.logger.Info("job done", "job", name, "elapsed", time.Since(start).Round(time.Millisecond))
}

// cronLogger adapts sqrt.Logger to cron.Logger.
type cronLogger struct {
	logger sqrt.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
