package sqrt

import (
	"context"
	"io"
	"time"

	"sqrt-go/internal/model"
)

// Dump describes a remote data export ready for download.
type Dump struct {
	ID          string
	CreatedAt   time.Time
	DownloadURL string
}

// DumpFetcher talks to a remote service that produces periodic exports.
type DumpFetcher interface {
	// LatestDump returns the newest completed export, or nil if none is ready.
	LatestDump(ctx context.Context) (*Dump, error)

	// Download writes the export body to w.
	Download(ctx context.Context, dump *Dump, w io.Writer) error
}

// VideoCatalog looks up YouTube videos.
type VideoCatalog interface {
	// Video returns the video and its channel, or nil, nil, nil when YouTube
	// has no video with the id.
	Video(ctx context.Context, id string) (*model.YoutubeVideo, *model.YoutubeChannel, error)
}
