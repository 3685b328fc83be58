package sqrt

import (
	"context"
	"errors"
	"fmt"
)

// Job names. Each job is one scheduled unit of work and one history entry.
const (
	JobWaka       = "waka"
	JobMpd        = "mpd"
	JobSleep      = "sleep"
	JobAw         = "aw"
	JobMessengers = "messengers"
	JobYoutube    = "youtube"
	JobArchive    = "archive"
)

// JobNames lists every job in the order `sync all` runs them.
var JobNames = []string{JobWaka, JobMpd, JobSleep, JobAw, JobMessengers, JobYoutube, JobArchive}

// UnknownJobError is returned for a job name not in JobNames.
type UnknownJobError struct {
	Name string
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("unknown job %q", e.Name)
}

// RunJob runs every step of the named job. Steps keep going after a step
// reported per-resource failures; those are joined into the returned error.
// A step that aborts stops the job.
func (s *SqrtService) RunJob(ctx context.Context, name string) error {
	var steps []func(context.Context) (*SyncReport, error)

	switch name {
	case JobWaka:
		steps = append(steps, s.fetchWakaStep, s.SyncWaka)
	case JobMpd:
		steps = append(steps, s.SyncMusic)
	case JobSleep:
		steps = append(steps, s.SyncSleep)
	case JobAw:
		steps = append(steps, s.SyncActivity, s.SyncAndroid, s.reconcileStep, s.appTimeStep)
	case JobMessengers:
		steps = append(steps, s.SyncNameMapping, s.SyncTelegram, s.SyncVk)
	case JobYoutube:
		steps = append(steps, s.SyncYoutube)
	case JobArchive:
		steps = append(steps, s.archiveStep)
	default:
		return &UnknownJobError{Name: name}
	}

	var errs []error
	for _, step := range steps {
		report, err := step(ctx)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		if report == nil {
			continue
		}
		s.logger.Info("step finished", "job", name, "source", report.Source,
			"examined", report.Examined, "skipped", report.Skipped, "imported", report.Imported, "failed", len(report.Failures))
		if err := report.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RanToday reports whether the job already finished successfully on the
// current local date.
func (s *SqrtService) RanToday(ctx context.Context, name string) (bool, error) {
	last, err := s.database.FindLastSuccessfulSyncOperation(ctx, name)
	if err != nil {
		return false, fmt.Errorf("loading last run of %s: %w", name, err)
	}
	if last == nil {
		return false, nil
	}
	now := s.clock.Now()
	started := last.StartedAt.In(now.Location())
	y1, m1, d1 := now.Date()
	y2, m2, d2 := started.Date()
	return y1 == y2 && m1 == m2 && d1 == d2, nil
}

func (s *SqrtService) fetchWakaStep(ctx context.Context) (*SyncReport, error) {
	if s.fetcher == nil {
		s.logger.Debug("wakatime fetcher not configured, using local dumps only")
		return nil, nil
	}
	_, err := s.FetchWaka(ctx)
	return nil, err
}

func (s *SqrtService) reconcileStep(ctx context.Context) (*SyncReport, error) {
	_, err := s.ReconcileActivity(ctx)
	return nil, err
}

func (s *SqrtService) appTimeStep(ctx context.Context) (*SyncReport, error) {
	_, err := s.ComputeAppTime(ctx)
	return nil, err
}

func (s *SqrtService) archiveStep(ctx context.Context) (*SyncReport, error) {
	if s.vault == nil {
		s.logger.Info("no vault configured, archive skipped")
		return nil, nil
	}
	report, err := s.Archive(ctx)
	if report != nil {
		s.logger.Info("archive finished", "archives", len(report.Archives), "files", report.FilesRemoved, "hashes", report.HashesRemoved)
	}
	return nil, err
}
