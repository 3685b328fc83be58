package parse

import (
	"testing"
	"time"
)

func TestWakaDumpList(t *testing.T) {
	input := `{"data": [
		{"id": "d1", "status": "Completed", "is_processing": false, "created_at": "2024-01-10T00:00:00Z", "download_url": "https://dl/1"},
		{"id": "d2", "status": "Pending", "is_processing": true, "created_at": "2024-01-12T00:00:00Z", "download_url": ""},
		{"id": "d3", "status": "Completed", "is_processing": true, "created_at": "2024-01-13T00:00:00Z", "download_url": "https://dl/3"}
	]}`

	dumps, err := WakaDumpList([]byte(input))
	if err != nil {
		t.Fatalf("WakaDumpList() error = %v", err)
	}
	if len(dumps) != 3 {
		t.Fatalf("got %d dumps, want 3", len(dumps))
	}
	if !dumps[0].Completed || dumps[0].DownloadURL != "https://dl/1" || !dumps[0].CreatedAt.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dump = %+v", dumps[0])
	}
	if dumps[1].Completed {
		t.Error("pending dump should not be completed")
	}
	if dumps[2].Completed {
		t.Error("dump still processing should not be completed")
	}

	if _, err := WakaDumpList([]byte(`{"data": [{"id": "x", "created_at": "later"}]}`)); err == nil {
		t.Error("bad created_at should fail")
	}
	if _, err := WakaDumpList([]byte(`{`)); err == nil {
		t.Error("invalid JSON should fail")
	}
}

func TestWakaDump(t *testing.T) {
	input := `{"days": [
		{"date": "2024-01-15", "projects": [
			{"name": "sqrt",
			 "grand_total": {"total_seconds": 5400, "digital": "1:30", "hours": 1, "minutes": 30},
			 "languages": [
				{"name": "Go", "total_seconds": 3600, "percent": 66.7, "digital": "1:00", "hours": 1, "minutes": 0},
				{"name": "SQL", "total_seconds": 1800, "percent": 33.3, "digital": "0:30", "hours": 0, "minutes": 30}
			 ],
			 "editors": [{"name": "vim", "total_seconds": 5400, "percent": 100}]}
		]},
		{"date": "2024-01-16", "projects": []}
	]}`

	entries, err := WakaDump([]byte(input))
	if err != nil {
		t.Fatalf("WakaDump() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	byKey := make(map[string]float64)
	for _, e := range entries {
		if e.Date != "2024-01-15" || e.Project != "sqrt" {
			t.Errorf("entry = %+v", e)
		}
		byKey[e.Kind+"/"+e.Name] = e.TotalMinutes
	}
	want := map[string]float64{
		"grand_total/":  90,
		"languages/Go":  60,
		"languages/SQL": 30,
		"editors/vim":   90,
	}
	for k, v := range want {
		if byKey[k] != v {
			t.Errorf("%s total_minutes = %v, want %v", k, byKey[k], v)
		}
	}

	if _, err := WakaDump([]byte(`{"days": {}}`)); err == nil {
		t.Error("non-array days should fail")
	}
}
