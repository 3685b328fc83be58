package sqrt

import (
	"context"
	"fmt"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
)

// SyncSleep replaces the sleep tables with the merged sessions of the
// export when the export changed.
func (s *SqrtService) SyncSleep(ctx context.Context) (*SyncReport, error) {
	path := s.settings.Sleep.File
	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return nil, &TransientSourceError{Source: "sleep", Err: err}
	}
	if !exists {
		s.logger.Warn("sleep export not found", "path", path)
		return &SyncReport{Source: "sleep"}, nil
	}
	res, err := s.fsmgr.Resolve(path)
	if err != nil {
		return nil, &TransientSourceError{Source: "sleep", Err: err}
	}
	return s.sync.Run(ctx, "sleep", []*Resource{res}, ImporterFunc(s.importSleep))
}

func (s *SqrtService) importSleep(ctx context.Context, res *Resource) error {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	sessions, err := parse.SleepCSV(rc, s.settings.Sleep.Geos)
	if err != nil {
		return &ParseError{Resource: res.ID(), Line: parse.Line(err), Err: err}
	}
	merged := MergeSleepSessions(sessions, s.settings.Sleep.Policy)
	s.logger.Info("sleep sessions parsed", "parsed", len(sessions), "merged", len(merged))

	sessionRows := Batch{Entity: model.EntitySleepMain}
	events := Batch{Entity: model.EntitySleepEvents}
	times := Batch{Entity: model.EntitySleepTimes}
	for _, session := range merged {
		sessionRows.Rows = append(sessionRows.Rows, session.Row())
		events.Rows = append(events.Rows, session.EventRows()...)
		times.Rows = append(times.Rows, session.TimeRows()...)
	}

	if _, err := s.database.Ingest(ctx, sessionRows, events, times); err != nil {
		return fmt.Errorf("ingesting sleep sessions: %w", err)
	}
	return nil
}
