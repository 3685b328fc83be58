package sqrt

import (
	"context"
	"fmt"
	"io"
	"time"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
)

// SyncActivity loads the changed desktop bucket exports of the logs folder.
func (s *SqrtService) SyncActivity(ctx context.Context) (*SyncReport, error) {
	resources, err := s.fsmgr.FindFiles(s.settings.Activity.LogsFolder, "*.csv", false)
	if err != nil {
		return nil, &TransientSourceError{Source: "aw", Err: err}
	}
	return s.sync.Run(ctx, "aw", resources, ImporterFunc(s.importBucketFile))
}

func (s *SqrtService) importBucketFile(ctx context.Context, res *Resource) error {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	batch, err := s.bucketBatch(parse.BucketKind(res.Name()), rc)
	if err != nil {
		return &ParseError{Resource: res.ID(), Line: parse.Line(err), Err: err}
	}

	n, err := s.database.Ingest(ctx, batch)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", batch.Entity, err)
	}
	s.logger.Info("bucket export loaded", "resource", res.ID(), "entity", batch.Entity, "rows", n)
	return nil
}

func (s *SqrtService) bucketBatch(kind string, r io.Reader) (Batch, error) {
	switch kind {
	case parse.KindAfkStatus:
		events, err := parse.AfkStatusCSV(r)
		if err != nil {
			return Batch{}, err
		}
		rows := make([][]any, 0, len(events))
		for _, e := range events {
			s.locate(&e.BucketEvent)
			rows = append(rows, e.Row())
		}
		return Batch{Entity: model.EntityAfkStatus, Rows: rows}, nil

	case parse.KindCurrentWindow:
		events, err := parse.CurrentWindowCSV(r)
		if err != nil {
			return Batch{}, err
		}
		rows := make([][]any, 0, len(events))
		for _, e := range events {
			if renamed, ok := s.settings.Activity.AppsConvert[e.App]; ok {
				e.App = renamed
			}
			s.locate(&e.BucketEvent)
			rows = append(rows, e.Row())
		}
		return Batch{Entity: model.EntityCurrentWindow, Rows: rows}, nil

	case parse.KindWebTab:
		events, err := parse.WebTabCSV(r)
		if err != nil {
			return Batch{}, err
		}
		rows := make([][]any, 0, len(events))
		for _, e := range events {
			s.locate(&e.BucketEvent)
			rows = append(rows, e.Row())
		}
		return Batch{Entity: model.EntityWebTab, Rows: rows}, nil

	case parse.KindAppEditor:
		events, err := parse.AppEditorCSV(r)
		if err != nil {
			return Batch{}, err
		}
		rows := make([][]any, 0, len(events))
		for _, e := range events {
			s.locate(&e.BucketEvent)
			rows = append(rows, e.Row())
		}
		return Batch{Entity: model.EntityAppEditor, Rows: rows}, nil
	}
	return Batch{}, &parse.UnknownKindError{Kind: kind}
}

// SyncAndroid replaces the Android tables with the export file when it changed.
func (s *SqrtService) SyncAndroid(ctx context.Context) (*SyncReport, error) {
	path := s.settings.Activity.AndroidFile
	if path == "" {
		return &SyncReport{Source: "aw-android"}, nil
	}
	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return nil, &TransientSourceError{Source: "aw-android", Err: err}
	}
	if !exists {
		s.logger.Info("android export not found", "path", path)
		return &SyncReport{Source: "aw-android"}, nil
	}
	res, err := s.fsmgr.Resolve(path)
	if err != nil {
		return nil, &TransientSourceError{Source: "aw-android", Err: err}
	}
	return s.sync.Run(ctx, "aw-android", []*Resource{res}, ImporterFunc(s.importAndroid))
}

func (s *SqrtService) importAndroid(ctx context.Context, res *Resource) error {
	data, err := s.readAll(res)
	if err != nil {
		return err
	}
	export, err := parse.AndroidJSON(data)
	if err != nil {
		return &ParseError{Resource: res.ID(), Err: err}
	}
	for _, id := range export.Skipped {
		s.logger.Debug("android bucket skipped", "bucket", id)
	}

	windows := make([][]any, 0, len(export.Windows))
	for _, e := range export.Windows {
		s.locate(&e.BucketEvent)
		windows = append(windows, e.Row())
	}
	unlocks := make([][]any, 0, len(export.Unlocks))
	for _, e := range export.Unlocks {
		s.locate(&e.BucketEvent)
		unlocks = append(unlocks, e.Row())
	}

	_, err = s.database.Ingest(ctx,
		Batch{Entity: model.EntityAndroidCurrentWindow, Rows: windows},
		Batch{Entity: model.EntityAndroidUnlock, Rows: unlocks},
	)
	if err != nil {
		return fmt.Errorf("ingesting android export: %w", err)
	}
	s.logger.Info("android export loaded", "windows", len(windows), "unlocks", len(unlocks))
	return nil
}

// ReconcileReport summarizes a ReconcileActivity run.
type ReconcileReport struct {
	Days      []string
	Intervals int
}

// ReconcileActivity regenerates the effective intervals of every day whose
// window-event count changed since the last run, then stores the new
// checkpoints. A failing day leaves the checkpoints untouched so the next
// run retries it.
func (s *SqrtService) ReconcileActivity(ctx context.Context) (*ReconcileReport, error) {
	live, err := s.database.CountWindowEventsByDay(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting window events: %w", err)
	}
	checkpoints, err := s.database.ListNotAfkCheckpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}

	report := &ReconcileReport{Days: DaysToReprocess(live, checkpoints)}
	for _, date := range report.Days {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, err := s.reconcileDate(ctx, date)
		if err != nil {
			return report, fmt.Errorf("reconciling %s: %w", date, err)
		}
		report.Intervals += n
		s.logger.Info("day reconciled", "date", date, "intervals", n)
	}

	if err := s.database.ReplaceNotAfkCheckpoints(ctx, live); err != nil {
		return report, fmt.Errorf("saving checkpoints: %w", err)
	}
	return report, nil
}

func (s *SqrtService) reconcileDate(ctx context.Context, date string) (int, error) {
	dayStart, err := time.ParseInLocation(model.DateLayout, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parsing date: %w", err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	windows, err := s.database.FindWindowEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("loading window events: %w", err)
	}
	afks, err := s.database.FindAfkEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("loading afk events: %w", err)
	}

	intervals := ReconcileDay(dayStart, dayEnd, windows, afks, s.settings.Activity.Rules)
	if err := s.database.ReplaceEffectiveIntervals(ctx, dayStart, dayEnd, intervals); err != nil {
		return 0, fmt.Errorf("storing intervals: %w", err)
	}
	return len(intervals), nil
}

// ComputeAppTime rebuilds the per-day totals of the tracked apps.
func (s *SqrtService) ComputeAppTime(ctx context.Context) ([]*model.AppInterval, error) {
	apps := s.settings.Activity.IntervalApps
	if len(apps) == 0 {
		return nil, nil
	}
	intervals, err := s.database.FindEffectiveIntervalsByApps(ctx, apps)
	if err != nil {
		return nil, fmt.Errorf("loading intervals: %w", err)
	}

	totals := ComputeAppIntervals(intervals, s.settings.Activity.IntervalGap)
	rows := make([][]any, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, t.Row())
	}
	if _, err := s.database.Ingest(ctx, Batch{Entity: model.EntityAppIntervals, Rows: rows}); err != nil {
		return nil, fmt.Errorf("ingesting app intervals: %w", err)
	}
	s.logger.Info("app time computed", "apps", len(apps), "rows", len(rows))
	return totals, nil
}

func (s *SqrtService) readAll(res *Resource) ([]byte, error) {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return nil, fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	return data, nil
}
