package sqrt

import (
	"context"
	"fmt"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
)

// SyncMusic upserts the MPD library when it changed and then imports the
// changed listening logs. Logs are imported even if the library failed, so
// songs already known are not held back.
func (s *SqrtService) SyncMusic(ctx context.Context) (*SyncReport, error) {
	var libErr error
	if lib := s.settings.Music.LibraryFile; lib != "" {
		libReport, err := s.syncLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libErr = libReport.Err()
	}

	resources, err := s.fsmgr.FindFiles(s.settings.Music.LogFolder, "*.csv", false)
	if err != nil {
		return nil, &TransientSourceError{Source: "mpd", Err: err}
	}
	report, err := s.sync.Run(ctx, "mpd", resources, ImporterFunc(s.importListenLog))
	if err != nil {
		return report, err
	}
	if libErr != nil {
		report.Failures = append(report.Failures, ResourceFailure{ResourceID: s.settings.Music.LibraryFile, Err: libErr})
	}
	return report, nil
}

func (s *SqrtService) syncLibrary(ctx context.Context, path string) (*SyncReport, error) {
	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return nil, &TransientSourceError{Source: "mpd", Err: err}
	}
	if !exists {
		s.logger.Warn("mpd library not found", "path", path)
		return &SyncReport{Source: "mpd-library"}, nil
	}
	res, err := s.fsmgr.Resolve(path)
	if err != nil {
		return nil, &TransientSourceError{Source: "mpd", Err: err}
	}
	return s.sync.Run(ctx, "mpd-library", []*Resource{res}, ImporterFunc(s.importLibrary))
}

func (s *SqrtService) importLibrary(ctx context.Context, res *Resource) error {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	songs, err := parse.MpdLibraryCSV(rc)
	if err != nil {
		return &ParseError{Resource: res.ID(), Line: parse.Line(err), Err: err}
	}
	rows := make([][]any, 0, len(songs))
	for _, song := range songs {
		rows = append(rows, song.Row())
	}
	n, err := s.database.Ingest(ctx, Batch{Entity: model.EntityMpdSong, Rows: rows})
	if err != nil {
		return fmt.Errorf("ingesting library: %w", err)
	}
	s.logger.Info("mpd library loaded", "songs", len(songs), "rows", n)
	return nil
}

// importListenLog links every listened line of the log to its library song.
// Lines of songs missing from the library are reported as a referential gap
// after the others were written.
func (s *SqrtService) importListenLog(ctx context.Context, res *Resource) error {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	listens, err := parse.MpdLogCSV(rc)
	if err != nil {
		return &ParseError{Resource: res.ID(), Line: parse.Line(err), Err: err}
	}

	var (
		rows    [][]any
		missing []string
	)
	for _, l := range listens {
		if l.Type == parse.ListenSkipped {
			continue
		}
		id, err := s.database.FindSongIDByFile(ctx, l.File)
		if err != nil {
			return fmt.Errorf("looking up %s: %w", l.File, err)
		}
		if id == 0 {
			s.logger.Error("song not found", "file", l.File)
			missing = append(missing, l.File)
			continue
		}
		listened := model.SongListened{SongID: id, Time: l.Time}
		rows = append(rows, listened.Row())
	}

	if _, err := s.database.Ingest(ctx, Batch{Entity: model.EntitySongListened, Rows: rows}); err != nil {
		return fmt.Errorf("ingesting listens: %w", err)
	}
	if len(missing) > 0 {
		return &ReferentialGapError{Resource: res.ID(), Missing: missing}
	}
	return nil
}

