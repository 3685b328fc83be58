package sqrt

import (
	"sort"
	"time"

	"sqrt-go/internal/model"
)

// ComputeAppIntervals groups the interval timestamps of each app into
// sessions, splitting whenever two consecutive timestamps are more than gap
// apart, and sums session lengths per app and start date. Sessions made of
// a single timestamp have no length and are dropped.
func ComputeAppIntervals(intervals []*model.EffectiveInterval, gap time.Duration) []*model.AppInterval {
	byApp := make(map[string][]time.Time)
	for _, iv := range intervals {
		byApp[iv.App] = append(byApp[iv.App], iv.Timestamp)
	}

	type key struct{ app, date string }
	totals := make(map[key]float64)

	for app, stamps := range byApp {
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

		start, end := stamps[0], stamps[0]
		flush := func() {
			if end.After(start) {
				totals[key{app, start.Format(model.DateLayout)}] += end.Sub(start).Seconds()
			}
		}
		for _, ts := range stamps[1:] {
			if ts.Sub(end) > gap {
				flush()
				start = ts
			}
			end = ts
		}
		flush()
	}

	out := make([]*model.AppInterval, 0, len(totals))
	for k, seconds := range totals {
		out = append(out, &model.AppInterval{App: k.app, Date: k.date, Seconds: seconds})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].App != out[j].App {
			return out[i].App < out[j].App
		}
		return out[i].Date < out[j].Date
	})
	return out
}
