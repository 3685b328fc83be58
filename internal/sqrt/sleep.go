package sqrt

import (
	"sort"
	"time"

	"sqrt-go/internal/model"
)

// SleepMergeGap is the largest wake-up gap between two sessions that are
// still merged into one.
const SleepMergeGap = 20 * time.Minute

// Pick selects which session provides a single-valued field on merge.
type Pick int

const (
	PickEarlier Pick = iota
	PickLater
)

// SleepMergePolicy names the source of every field that has no natural
// aggregation. From and ID always come from the earlier session and To
// from the later one.
type SleepMergePolicy struct {
	Sched     Pick
	Comment   Pick
	Rating    Pick
	Framerate Pick
	Geo       Pick
	Tz        Pick
	LenAdjust Pick
}

// DefaultSleepMergePolicy keeps the earlier alarm schedule and takes every
// other single-valued field from the later session.
func DefaultSleepMergePolicy() SleepMergePolicy {
	return SleepMergePolicy{
		Sched:     PickEarlier,
		Comment:   PickLater,
		Rating:    PickLater,
		Framerate: PickLater,
		Geo:       PickLater,
		Tz:        PickLater,
		LenAdjust: PickLater,
	}
}

// MergeSleepSessions sorts sessions by start and merges each session into
// the previous one when it starts less than SleepMergeGap after that one
// ended. The input is not modified.
func MergeSleepSessions(sessions []*model.SleepSession, policy SleepMergePolicy) []*model.SleepSession {
	if len(sessions) == 0 {
		return nil
	}

	sorted := make([]*model.SleepSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })

	var out []*model.SleepSession
	base := cloneSession(sorted[0])
	// measured holds the hours of the sessions merged into base that
	// carry a deep sleep value.
	measured := measuredHours(base)
	for _, next := range sorted[1:] {
		if next.From.Sub(base.To) < SleepMergeGap {
			base, measured = mergeSessions(base, measured, next, policy)
			continue
		}
		out = append(out, base)
		base = cloneSession(next)
		measured = measuredHours(base)
	}
	return append(out, base)
}

func mergeSessions(a *model.SleepSession, aMeasured float64, b *model.SleepSession, p SleepMergePolicy) (*model.SleepSession, float64) {
	deep, measured := weightedDeepSleep(a.DeepSleep, aMeasured, b)
	m := &model.SleepSession{
		ID:        a.ID,
		From:      a.From,
		To:        b.To,
		Hours:     a.Hours + b.Hours,
		Cycles:    sumMeasured(a.Cycles, b.Cycles),
		DeepSleep: deep,
		Noise:     max(a.Noise, b.Noise),
		Snore:     max(a.Snore, b.Snore),
		Sched:     pick(p.Sched, a.Sched, b.Sched),
		Comment:   pick(p.Comment, a.Comment, b.Comment),
		Rating:    pick(p.Rating, a.Rating, b.Rating),
		Framerate: pick(p.Framerate, a.Framerate, b.Framerate),
		Geo:       pick(p.Geo, a.Geo, b.Geo),
		Tz:        pick(p.Tz, a.Tz, b.Tz),
		LenAdjust: pick(p.LenAdjust, a.LenAdjust, b.LenAdjust),
		Merged:    true,
	}

	m.Events = make([]model.SleepEvent, 0, len(a.Events)+len(b.Events))
	m.Events = append(append(m.Events, a.Events...), b.Events...)
	sort.SliceStable(m.Events, func(i, j int) bool { return m.Events[i].Timestamp < m.Events[j].Timestamp })

	seen := make(map[string]bool)
	for _, tag := range append(append([]string{}, a.Tags...), b.Tags...) {
		if !seen[tag] {
			seen[tag] = true
			m.Tags = append(m.Tags, tag)
		}
	}
	sort.Strings(m.Tags)

	m.Times = make(map[string]float64, len(a.Times)+len(b.Times))
	for k, v := range a.Times {
		m.Times[k] = v
	}
	for k, v := range b.Times {
		m.Times[k] = v
	}
	return m, measured
}

// weightedDeepSleep averages deep sleep weighted by measured hours and
// returns the measured hours of the result. Unmeasured values (<= 0) are
// left out of the mean.
func weightedDeepSleep(deep, weight float64, b *model.SleepSession) (float64, float64) {
	sum := 0.0
	if deep > 0 {
		sum = deep * weight
	}
	if bw := measuredHours(b); bw > 0 {
		sum += b.DeepSleep * bw
		weight += bw
	}
	if weight == 0 {
		return max(deep, b.DeepSleep), 0
	}
	return sum / weight, weight
}

func measuredHours(s *model.SleepSession) float64 {
	if s.DeepSleep > 0 && s.Hours > 0 {
		return s.Hours
	}
	return 0
}

func sumMeasured(a, b float64) float64 {
	switch {
	case a > 0 && b > 0:
		return a + b
	case a > 0:
		return a
	default:
		return b
	}
}

func pick[T any](p Pick, earlier, later T) T {
	if p == PickLater {
		return later
	}
	return earlier
}

func cloneSession(s *model.SleepSession) *model.SleepSession {
	c := *s
	c.Tags = append([]string(nil), s.Tags...)
	c.Events = append([]model.SleepEvent(nil), s.Events...)
	c.Times = make(map[string]float64, len(s.Times))
	for k, v := range s.Times {
		c.Times[k] = v
	}
	return &c
}
