package sqrt

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"sqrt-go/internal/model"
)

// AfkLabel replaces app and title of intervals spent away from the computer.
const AfkLabel = "AFK"

// AfkRules decides whether a short AFK period is still counted as activity.
// A nil pattern never matches.
type AfkRules struct {
	SkipInterval float64 // seconds
	SkipApps     *regexp.Regexp
	SkipTitles   *regexp.Regexp
}

// NewAfkRules compiles the app and title patterns. Empty patterns never match.
func NewAfkRules(skipInterval float64, appsPattern, titlesPattern string) (*AfkRules, error) {
	rules := &AfkRules{SkipInterval: skipInterval}
	var err error
	if appsPattern != "" {
		if rules.SkipApps, err = regexp.Compile(appsPattern); err != nil {
			return nil, fmt.Errorf("compiling skip_afk_apps: %w", err)
		}
	}
	if titlesPattern != "" {
		if rules.SkipTitles, err = regexp.Compile(titlesPattern); err != nil {
			return nil, fmt.Errorf("compiling skip_afk_titles: %w", err)
		}
	}
	return rules, nil
}

// keepWindow reports whether the window sample counts as activity during
// the AFK sample: the user was present, or was away for less than
// SkipInterval while a passive app or title (video, call) was focused.
func (r *AfkRules) keepWindow(afk *model.AfkEvent, win *model.WindowEvent) bool {
	if afk.Status {
		return true
	}
	if afk.Duration >= r.SkipInterval {
		return false
	}
	return matches(r.SkipApps, win.App) || matches(r.SkipTitles, win.Title)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}

var idSuffix = regexp.MustCompile(`[0-9]+$`)

// EffectiveIntervalID builds "afkw-<window suffix>-<afk suffix>" from the
// trailing digits of both event IDs.
func EffectiveIntervalID(windowID, afkID string) string {
	return "afkw-" + idSuffix.FindString(windowID) + "-" + idSuffix.FindString(afkID)
}

// ReconcileDay intersects window samples with AFK samples of the same host
// and returns the intervals starting in [dayStart, dayEnd), newest first.
// Overlaps are half-open and intervals of zero length are dropped.
func ReconcileDay(dayStart, dayEnd time.Time, windows []*model.WindowEvent, afks []*model.AfkEvent, rules *AfkRules) []*model.EffectiveInterval {
	var out []*model.EffectiveInterval

	for _, c := range windows {
		cEnd := c.End()
		for _, a := range afks {
			if a.Hostname != c.Hostname {
				continue
			}
			aEnd := a.End()
			if !a.Timestamp.Before(cEnd) || !c.Timestamp.Before(aEnd) {
				continue
			}

			start := laterOf(a.Timestamp, c.Timestamp)
			end := earlierOf(aEnd, cEnd)
			duration := end.Sub(start).Seconds()
			if duration <= 0 {
				continue
			}
			if start.Before(dayStart) || !start.Before(dayEnd) {
				continue
			}

			app, title := AfkLabel, AfkLabel
			if rules.keepWindow(a, c) {
				app, title = c.App, c.Title
			}

			out = append(out, &model.EffectiveInterval{
				ID:        EffectiveIntervalID(c.ID, a.ID),
				BucketID:  c.BucketID,
				Hostname:  c.Hostname,
				Location:  c.Location,
				Timestamp: start,
				Duration:  duration,
				App:       app,
				Title:     title,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DaysToReprocess returns the dates whose live window-event count differs
// from the checkpoint or that have no checkpoint, in the order of live.
func DaysToReprocess(live, checkpoints []model.DayCount) []string {
	stored := make(map[string]int64, len(checkpoints))
	for _, c := range checkpoints {
		stored[c.Date] = c.Count
	}

	var days []string
	for _, l := range live {
		if count, ok := stored[l.Date]; !ok || count != l.Count {
			days = append(days, l.Date)
		}
	}
	return days
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
