package sqrt

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
)

// wakaDumpLayout names downloaded dumps so they sort by creation time.
const wakaDumpLayout = "20060102T150405Z"

// WakaDumpPath returns the local file name of a dump.
func (s *SqrtService) WakaDumpPath(dump *Dump) string {
	return filepath.Join(s.settings.Waka.DumpFolder, "wakatime-"+dump.CreatedAt.UTC().Format(wakaDumpLayout)+".json")
}

// FetchWaka downloads the newest completed WakaTime dump unless it is
// already present. It returns the local path, or "" if no dump is ready.
func (s *SqrtService) FetchWaka(ctx context.Context) (string, error) {
	if s.fetcher == nil {
		return "", fmt.Errorf("no wakatime fetcher configured")
	}
	dump, err := s.fetcher.LatestDump(ctx)
	if err != nil {
		return "", &TransientSourceError{Source: "waka", Err: err}
	}
	if dump == nil {
		s.logger.Info("no completed wakatime dump")
		return "", nil
	}

	path := s.WakaDumpPath(dump)
	exists, err := s.fsmgr.Exists(path)
	if err != nil {
		return "", &TransientSourceError{Source: "waka", Err: err}
	}
	if exists {
		s.logger.Debug("wakatime dump already downloaded", "path", path)
		return path, nil
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.fetcher.Download(ctx, dump, pw))
	}()
	if _, err := s.fsmgr.Create(path, pr); err != nil {
		pr.CloseWithError(err)
		return "", &TransientSourceError{Source: "waka", Err: err}
	}
	s.logger.Info("wakatime dump downloaded", "path", path, "dump", dump.ID)
	return path, nil
}

// SyncWaka replaces the WakaTime table with the newest local dump when it
// was not loaded yet.
func (s *SqrtService) SyncWaka(ctx context.Context) (*SyncReport, error) {
	dumps, err := s.fsmgr.FindFiles(s.settings.Waka.DumpFolder, "wakatime-*.json", false)
	if err != nil {
		return nil, &TransientSourceError{Source: "waka", Err: err}
	}
	if len(dumps) == 0 {
		s.logger.Info("no wakatime dumps found")
		return &SyncReport{Source: "waka"}, nil
	}
	latest := dumps[len(dumps)-1]
	return s.sync.Run(ctx, "waka", []*Resource{latest}, ImporterFunc(s.importWaka))
}

func (s *SqrtService) importWaka(ctx context.Context, res *Resource) error {
	data, err := s.readAll(res)
	if err != nil {
		return err
	}
	entries, err := parse.WakaDump(data)
	if err != nil {
		return &ParseError{Resource: res.ID(), Err: err}
	}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, e.Row())
	}
	if _, err := s.database.Ingest(ctx, Batch{Entity: model.EntityWakaEntries, Rows: rows}); err != nil {
		return fmt.Errorf("ingesting wakatime dump: %w", err)
	}
	s.logger.Info("wakatime dump loaded", "resource", res.ID(), "rows", len(rows))
	return nil
}
