package parse

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"regexp"

	"golang.org/x/net/publicsuffix"

	"sqrt-go/internal/model"
)

// Bucket kinds of the desktop exports, taken from the file name prefix.
const (
	KindAfkStatus     = "afkstatus"
	KindCurrentWindow = "currentwindow"
	KindAppEditor     = "app_editor_activity"
	KindWebTab        = "web_tab_current"
)

var leadingWord = regexp.MustCompile(`^\w+`)

// BucketKind returns the leading word of the export file name, e.g.
// "currentwindow" for "currentwindow-laptop-2024-01-15T10:00:00.csv".
func BucketKind(filename string) string {
	return leadingWord.FindString(filepath.Base(filename))
}

var bucketColumns = []string{"id", "bucket_id", "hostname", "timestamp", "duration"}

func bucketEvent(rec *record) (model.BucketEvent, error) {
	ts, err := rec.timestamp("timestamp")
	if err != nil {
		return model.BucketEvent{}, err
	}
	duration, err := rec.number("duration")
	if err != nil {
		return model.BucketEvent{}, err
	}
	if duration < 0 {
		return model.BucketEvent{}, rec.errorf("negative duration %v", duration)
	}
	return model.BucketEvent{
		ID:        rec.str("id"),
		BucketID:  rec.str("bucket_id"),
		Hostname:  rec.str("hostname"),
		Timestamp: ts,
		Duration:  duration,
	}, nil
}

// AfkStatusCSV parses an afkstatus export. Status "not-afk" means present.
func AfkStatusCSV(r io.Reader) ([]*model.AfkEvent, error) {
	var out []*model.AfkEvent
	err := readTable(r, append(bucketColumns, "status"), func(rec *record) error {
		be, err := bucketEvent(rec)
		if err != nil {
			return err
		}
		out = append(out, &model.AfkEvent{BucketEvent: be, Status: rec.str("status") == "not-afk"})
		return nil
	})
	return out, err
}

// CurrentWindowCSV parses a currentwindow export.
func CurrentWindowCSV(r io.Reader) ([]*model.WindowEvent, error) {
	var out []*model.WindowEvent
	err := readTable(r, append(bucketColumns, "app"), func(rec *record) error {
		be, err := bucketEvent(rec)
		if err != nil {
			return err
		}
		out = append(out, &model.WindowEvent{BucketEvent: be, App: rec.str("app"), Title: rec.str("title")})
		return nil
	})
	return out, err
}

// AppEditorCSV parses an app_editor_activity export.
func AppEditorCSV(r io.Reader) ([]*model.EditorEvent, error) {
	var out []*model.EditorEvent
	err := readTable(r, bucketColumns, func(rec *record) error {
		be, err := bucketEvent(rec)
		if err != nil {
			return err
		}
		out = append(out, &model.EditorEvent{
			BucketEvent: be,
			File:        rec.str("file"),
			Project:     rec.str("project"),
			Language:    rec.str("language"),
		})
		return nil
	})
	return out, err
}

// WebTabCSV parses a web_tab_current export and derives the site and the
// parameterless URL of every tab.
func WebTabCSV(r io.Reader) ([]*model.WebTabEvent, error) {
	var out []*model.WebTabEvent
	err := readTable(r, append(bucketColumns, "url"), func(rec *record) error {
		be, err := bucketEvent(rec)
		if err != nil {
			return err
		}
		audible, err := rec.boolean("audible")
		if err != nil {
			return err
		}
		incognito, err := rec.boolean("incognito")
		if err != nil {
			return err
		}
		tabCount, err := rec.integer("tabCount")
		if err != nil {
			return err
		}
		site, noParams := SplitURL(rec.str("url"))
		out = append(out, &model.WebTabEvent{
			BucketEvent: be,
			URL:         rec.str("url"),
			Title:       rec.str("title"),
			Audible:     audible,
			Incognito:   incognito,
			TabCount:    tabCount,
			Site:        site,
			URLNoParams: noParams,
		})
		return nil
	})
	return out, err
}

// SplitURL returns the registrable domain of raw and raw without its query
// and fragment. Unparseable URLs yield an empty site and raw unchanged.
func SplitURL(raw string) (site, noParams string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	if host := u.Hostname(); host != "" {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			site = etld1
		}
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return site, u.String()
}

// UnknownKindError is returned for export files of an unsupported bucket kind.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string { return fmt.Sprintf("unknown bucket kind %q", e.Kind) }
