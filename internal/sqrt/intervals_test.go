package sqrt_test

import (
	"testing"
	"time"

	"sqrt-go/internal/model"
	"sqrt-go/internal/sqrt"
)

func TestComputeAppIntervals(t *testing.T) {
	iv := func(app, stamp string) *model.EffectiveInterval {
		ts, err := time.Parse(time.DateTime, stamp)
		if err != nil {
			t.Fatalf("parsing %s: %v", stamp, err)
		}
		return &model.EffectiveInterval{App: app, Timestamp: ts}
	}

	intervals := []*model.EffectiveInterval{
		// mpv: one session 20:00-20:08, a lone sample at 21:00, one session
		// the next day 08:00-08:03. Input order does not matter.
		iv("mpv", "2024-01-15 20:04:00"),
		iv("mpv", "2024-01-15 20:00:00"),
		iv("mpv", "2024-01-15 20:08:00"),
		iv("mpv", "2024-01-15 21:00:00"),
		iv("mpv", "2024-01-16 08:00:00"),
		iv("mpv", "2024-01-16 08:03:00"),
		iv("zoom", "2024-01-15 09:00:00"),
		iv("zoom", "2024-01-15 09:05:00"),
	}

	got := sqrt.ComputeAppIntervals(intervals, 5*time.Minute)
	want := []model.AppInterval{
		{App: "mpv", Date: "2024-01-15", Seconds: 480},
		{App: "mpv", Date: "2024-01-16", Seconds: 180},
		{App: "zoom", Date: "2024-01-15", Seconds: 300},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d totals, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if *got[i] != want[i] {
			t.Errorf("total[%d] = %+v, want %+v", i, *got[i], want[i])
		}
	}
}

func TestComputeAppIntervals_GapIsInclusive(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	intervals := []*model.EffectiveInterval{
		{App: "a", Timestamp: base},
		{App: "a", Timestamp: base.Add(time.Minute)},
		{App: "a", Timestamp: base.Add(time.Minute + time.Second)},
	}

	got := sqrt.ComputeAppIntervals(intervals, time.Minute)
	if len(got) != 1 || got[0].Seconds != 61 {
		t.Errorf("got %+v, want one total of 61s", got)
	}

	if got := sqrt.ComputeAppIntervals(nil, time.Minute); len(got) != 0 {
		t.Errorf("ComputeAppIntervals(nil) = %+v, want empty", got)
	}
}
