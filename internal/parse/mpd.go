package parse

import (
	"io"

	"sqrt-go/internal/model"
)

// ListenSkipped marks log lines of songs that were skipped.
const ListenSkipped = "skipped"

// MpdLibraryCSV parses the library dump written by the MPD agent.
func MpdLibraryCSV(r io.Reader) ([]*model.MpdSong, error) {
	var out []*model.MpdSong
	err := readTable(r, []string{"file"}, func(rec *record) error {
		duration, err := rec.number("duration")
		if err != nil {
			return err
		}
		out = append(out, &model.MpdSong{
			File:               rec.str("file"),
			Duration:           duration,
			Artist:             rec.str("artist"),
			AlbumArtist:        rec.str("album_artist"),
			Album:              rec.str("album"),
			Title:              rec.str("title"),
			Year:               rec.str("year"),
			MusicBrainzTrackID: rec.str("musicbrainz_trackid"),
		})
		return nil
	})
	return out, err
}

// MpdLogCSV parses a listening log written by the MPD agent.
func MpdLogCSV(r io.Reader) ([]*model.SongListen, error) {
	var out []*model.SongListen
	err := readTable(r, []string{"file", "time", "type"}, func(rec *record) error {
		ts, err := rec.timestamp("time")
		if err != nil {
			return err
		}
		out = append(out, &model.SongListen{
			File:        rec.str("file"),
			Artist:      rec.str("artist"),
			AlbumArtist: rec.str("album_artist"),
			Title:       rec.str("title"),
			Album:       rec.str("album"),
			Time:        ts,
			Type:        rec.str("type"),
		})
		return nil
	})
	return out, err
}
