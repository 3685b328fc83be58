package parse

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"sqrt-go/internal/model"
)

// WakaDumpInfo is one entry of the WakaTime datadumps listing.
type WakaDumpInfo struct {
	ID          string
	Status      string
	CreatedAt   time.Time
	DownloadURL string
	Completed   bool
}

// WakaDumpList parses the response of GET /users/current/datadumps.
func WakaDumpList(data []byte) ([]WakaDumpInfo, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	var (
		out []WakaDumpInfo
		err error
	)
	gjson.GetBytes(data, "data").ForEach(func(_, d gjson.Result) bool {
		created, perr := Timestamp(d.Get("created_at").String())
		if perr != nil {
			err = fmt.Errorf("dump %s: %w", d.Get("id").String(), perr)
			return false
		}
		out = append(out, WakaDumpInfo{
			ID:          d.Get("id").String(),
			Status:      d.Get("status").String(),
			CreatedAt:   created,
			DownloadURL: d.Get("download_url").String(),
			Completed:   d.Get("status").String() == "Completed" && !d.Get("is_processing").Bool(),
		})
		return true
	})
	return out, err
}

// WakaDump flattens a WakaTime heartbeat dump into per-day, per-project
// rows. Every key of a project other than "name" becomes a Kind;
// grand_total is a single object, the others are lists of named entries.
func WakaDump(data []byte) ([]*model.WakaEntry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	days := gjson.GetBytes(data, "days")
	if !days.IsArray() {
		return nil, fmt.Errorf("missing days array")
	}

	var out []*model.WakaEntry
	days.ForEach(func(_, day gjson.Result) bool {
		date := day.Get("date").String()
		day.Get("projects").ForEach(func(_, project gjson.Result) bool {
			name := project.Get("name").String()
			project.ForEach(func(key, value gjson.Result) bool {
				kind := key.String()
				switch {
				case kind == "name":
				case value.IsArray():
					value.ForEach(func(_, item gjson.Result) bool {
						out = append(out, wakaEntry(date, name, kind, item))
						return true
					})
				case value.IsObject():
					out = append(out, wakaEntry(date, name, kind, value))
				}
				return true
			})
			return true
		})
		return true
	})
	return out, nil
}

func wakaEntry(date, project, kind string, v gjson.Result) *model.WakaEntry {
	return &model.WakaEntry{
		Date:         date,
		Project:      project,
		Kind:         kind,
		Name:         v.Get("name").String(),
		TotalMinutes: v.Get("total_seconds").Float() / 60,
		Percent:      v.Get("percent").Float(),
		Digital:      v.Get("digital").String(),
		Hours:        v.Get("hours").Int(),
		Minutes:      v.Get("minutes").Int(),
	}
}
