package sqrt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
	"sqrt-go/internal/sqrt"
)

const (
	afkExport = "id,bucket_id,hostname,timestamp,duration,status\n" +
		"aw-watcher-afk_desk-1,aw-watcher-afk_desk,desk,2024-01-14 20:00:00,3600,not-afk\n"

	windowExport = "id,bucket_id,hostname,timestamp,duration,app,title\n" +
		"aw-watcher-window_desk-1,aw-watcher-window_desk,desk,2024-01-14 20:00:00,240,mpv,movie\n" +
		"aw-watcher-window_desk-2,aw-watcher-window_desk,desk,2024-01-14 20:04:00,240,mpv,movie\n" +
		"aw-watcher-window_desk-3,aw-watcher-window_desk,desk,2024-01-14 20:08:00,60,firefox,docs\n"
)

func TestSqrtService_SyncActivity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, func(s *sqrt.Settings) {
		s.Activity.AppsConvert = map[string]string{"firefox": "Firefox"}
	})
	env.fsmgr.AddFile("/data/aw/logs/afkstatus-desk.csv", []byte(afkExport))
	env.fsmgr.AddFile("/data/aw/logs/currentwindow-desk.csv", []byte(windowExport))
	env.fsmgr.AddFile("/data/aw/logs/battery-desk.csv", []byte("id\n1\n"))

	report, err := env.svc.SyncActivity(ctx)
	if err != nil {
		t.Fatalf("SyncActivity() error = %v", err)
	}
	if report.Imported != 2 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}
	var unknown *parse.UnknownKindError
	if !errors.As(report.Err(), &unknown) || unknown.Kind != "battery" {
		t.Errorf("report.Err() = %v, want unknown kind battery", report.Err())
	}
	var pe *sqrt.ParseError
	if !errors.As(report.Err(), &pe) {
		t.Errorf("report.Err() = %v, want a ParseError", report.Err())
	}

	if n := env.count(t, model.EntityCurrentWindow); n != 3 {
		t.Errorf("window rows = %d, want 3", n)
	}
	if n := env.count(t, model.EntityAfkStatus); n != 1 {
		t.Errorf("afk rows = %d, want 1", n)
	}

	dayStart := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	windows, err := env.db.FindWindowEvents(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("FindWindowEvents() error = %v", err)
	}
	apps := map[string]bool{}
	for _, w := range windows {
		apps[w.App] = true
	}
	if !apps["Firefox"] || apps["firefox"] {
		t.Errorf("apps = %v, want firefox renamed", apps)
	}

	// Unchanged exports are skipped on the next run.
	report, err = env.svc.SyncActivity(ctx)
	if err != nil {
		t.Fatalf("second SyncActivity() error = %v", err)
	}
	if report.Skipped != 2 || report.Imported != 0 {
		t.Errorf("second report = %+v", report)
	}
}

func TestSqrtService_ReconcileActivity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.fsmgr.AddFile("/data/aw/logs/afkstatus-desk.csv", []byte(afkExport))
	env.fsmgr.AddFile("/data/aw/logs/currentwindow-desk.csv", []byte(windowExport))
	if _, err := env.svc.SyncActivity(ctx); err != nil {
		t.Fatalf("SyncActivity() error = %v", err)
	}

	report, err := env.svc.ReconcileActivity(ctx)
	if err != nil {
		t.Fatalf("ReconcileActivity() error = %v", err)
	}
	if len(report.Days) != 1 || report.Days[0] != "2024-01-14" || report.Intervals != 3 {
		t.Errorf("report = %+v", report)
	}
	if n := env.count(t, model.EntityNotAfkWindow); n != 3 {
		t.Errorf("interval rows = %d, want 3", n)
	}

	checkpoints, err := env.db.ListNotAfkCheckpoints(ctx)
	if err != nil {
		t.Fatalf("ListNotAfkCheckpoints() error = %v", err)
	}
	if len(checkpoints) != 1 || checkpoints[0].Count != 3 {
		t.Errorf("checkpoints = %+v", checkpoints)
	}

	report, err = env.svc.ReconcileActivity(ctx)
	if err != nil {
		t.Fatalf("second ReconcileActivity() error = %v", err)
	}
	if len(report.Days) != 0 {
		t.Errorf("second run reprocessed %v", report.Days)
	}

	totals, err := env.svc.ComputeAppTime(ctx)
	if err != nil {
		t.Fatalf("ComputeAppTime() error = %v", err)
	}
	if len(totals) != 1 || totals[0].App != "mpv" || totals[0].Date != "2024-01-14" || totals[0].Seconds != 240 {
		t.Errorf("totals = %+v", totals)
	}
	if n := env.count(t, model.EntityAppIntervals); n != 1 {
		t.Errorf("app interval rows = %d, want 1", n)
	}
}

const androidExport = `{"buckets": {
  "aw-watcher-android-test": {"id": "aw-watcher-android-test", "type": "currentwindow", "hostname": "phone", "events": [
    {"id": 1, "timestamp": "2024-01-15T08:00:00Z", "duration": 10, "data": {"app": "Signal", "package": "org.signal", "classname": "Main"}},
    {"id": 2, "timestamp": "2024-01-15T08:01:00Z", "duration": 20, "data": {"app": "Maps", "package": "org.maps", "classname": "Main"}}
  ]},
  "aw-android-unlock": {"id": "aw-android-unlock", "type": "os.lockscreen.unlocks", "hostname": "phone", "events": [
    {"id": 1, "timestamp": "2024-01-15T07:59:00Z", "duration": 0, "data": {}}
  ]}
}}`

func TestSqrtService_SyncAndroid(t *testing.T) {
	ctx := context.Background()

	t.Run("missing export is not an error", func(t *testing.T) {
		env := newTestEnv(t, nil)
		report, err := env.svc.SyncAndroid(ctx)
		if err != nil || report.Examined != 0 {
			t.Errorf("SyncAndroid() = %+v, %v", report, err)
		}
	})

	t.Run("export replaces the android tables", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.fsmgr.AddFile("/data/aw/android/export.json", []byte(androidExport))

		if _, err := env.svc.SyncAndroid(ctx); err != nil {
			t.Fatalf("SyncAndroid() error = %v", err)
		}
		if n := env.count(t, model.EntityAndroidCurrentWindow); n != 2 {
			t.Errorf("android window rows = %d, want 2", n)
		}
		if n := env.count(t, model.EntityAndroidUnlock); n != 1 {
			t.Errorf("unlock rows = %d, want 1", n)
		}

		env.fsmgr.AddFile("/data/aw/android/export.json", []byte(`{"buckets": {}}`))
		report, err := env.svc.SyncAndroid(ctx)
		if err != nil || report.Imported != 1 {
			t.Fatalf("second SyncAndroid() = %+v, %v", report, err)
		}
		if n := env.count(t, model.EntityAndroidCurrentWindow); n != 0 {
			t.Errorf("android window rows after replace = %d, want 0", n)
		}
	})

	t.Run("invalid export is a parse failure", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.fsmgr.AddFile("/data/aw/android/export.json", []byte(`{"buckets":`))

		report, err := env.svc.SyncAndroid(ctx)
		if err != nil {
			t.Fatalf("SyncAndroid() error = %v", err)
		}
		var pe *sqrt.ParseError
		if !errors.As(report.Err(), &pe) {
			t.Errorf("report.Err() = %v, want ParseError", report.Err())
		}
	})
}
