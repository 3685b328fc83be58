package sqrt

import (
	"context"
	"fmt"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
)

// SyncYoutube loads the changed mpv watch logs. Videos missing from the
// catalog are looked up through the video catalog first.
func (s *SqrtService) SyncYoutube(ctx context.Context) (*SyncReport, error) {
	folder := s.settings.Youtube.MpvFolder
	if folder == "" {
		return &SyncReport{Source: "youtube"}, nil
	}
	if s.videos == nil {
		s.logger.Warn("no youtube api key configured, skipping watch logs")
		return &SyncReport{Source: "youtube"}, nil
	}
	resources, err := s.fsmgr.FindFiles(folder, "*.log", false)
	if err != nil {
		return nil, &TransientSourceError{Source: "youtube", Err: err}
	}
	return s.sync.Run(ctx, "youtube", resources, ImporterFunc(s.importMpvLog))
}

// importMpvLog replaces the watch rows of one log. Watches of videos that
// YouTube does not know are reported as a referential gap after the others
// were written.
func (s *SqrtService) importMpvLog(ctx context.Context, res *Resource) error {
	rc, err := s.fsmgr.Open(res)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer rc.Close()

	log, err := parse.MpvWatchLog(rc)
	if err != nil {
		return &ParseError{Resource: res.ID(), Line: parse.Line(err), Err: err}
	}
	if log.Skipped > 0 {
		s.logger.Warn("mpv log lines skipped", "resource", res.ID(), "lines", log.Skipped)
	}
	if log.Open != "" {
		return fmt.Errorf("video %s is still playing at the end of the log", log.Open)
	}

	channels := Batch{Entity: model.EntityYoutubeChannel}
	videos := Batch{Entity: model.EntityYoutubeVideo}
	watches := Batch{Entity: model.EntityYoutubeWatch}
	known := make(map[string]bool)
	var missing []string

	for _, w := range log.Watches {
		ok, seen := known[w.VideoID]
		if !seen {
			var err error
			if ok, err = s.resolveVideo(ctx, w.VideoID, &channels, &videos); err != nil {
				return err
			}
			known[w.VideoID] = ok
			if !ok {
				s.logger.Error("video not found", "video", w.VideoID)
				missing = append(missing, w.VideoID)
			}
		}
		if !ok {
			continue
		}
		watch := model.YoutubeWatch{File: res.Name(), VideoID: w.VideoID, Date: w.Date, Kind: "mpv", Duration: w.Duration}
		watches.Rows = append(watches.Rows, watch.Row())
	}

	if _, err := s.database.Ingest(ctx, channels, videos, watches); err != nil {
		return fmt.Errorf("ingesting watches: %w", err)
	}
	if len(missing) > 0 {
		return &ReferentialGapError{Resource: res.ID(), Missing: missing}
	}
	return nil
}

// resolveVideo reports whether the video is in the catalog, fetching and
// queueing it with its channel when it is not stored yet.
func (s *SqrtService) resolveVideo(ctx context.Context, id string, channels, videos *Batch) (bool, error) {
	stored, err := s.database.HasYoutubeVideo(ctx, id)
	if err != nil {
		return false, fmt.Errorf("looking up video %s: %w", id, err)
	}
	if stored {
		return true, nil
	}
	video, channel, err := s.videos.Video(ctx, id)
	if err != nil {
		return false, &TransientSourceError{Source: "youtube", Err: err}
	}
	if video == nil {
		return false, nil
	}
	channels.Rows = append(channels.Rows, channel.Row())
	videos.Rows = append(videos.Rows, video.Row())
	return true, nil
}
