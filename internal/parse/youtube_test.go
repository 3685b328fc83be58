package parse

import (
	"strings"
	"testing"
	"time"
)

const mpvLog = `{"kind":"loaded","time":"2024-01-15T20:00:00Z","path":"https://www.youtube.com/watch?v=abc123"}
{"kind":"pause","time":"2024-01-15T20:01:00Z"}
{"kind":"play","time":"2024-01-15T20:05:00Z"}
{"kind":"seek","time":"2024-01-15T20:06:00Z"}
{"kind":"end","time":"2024-01-15T20:08:30Z"}
mpv: cannot open audio device
{"kind":"loaded","time":"2024-01-15T20:10:00Z","path":"/music/song.flac"}
{"kind":"end","time":"2024-01-15T20:12:00Z"}
{"kind":"loaded","time":"2024-01-15T21:00:00Z","path":"https://www.youtube.com/watch?v=abc123]"}
{"kind":"play"}
{"kind":"stop","time":"2024-01-15T21:00:30Z"}

{"kind":"loaded","time":"2024-01-15T23:59:00Z","path":"https://youtube.com/watch?v=xyz&t=5"}
{"kind":"stop","time":"2024-01-16T00:01:00Z"}
`

func TestMpvWatchLog(t *testing.T) {
	log, err := MpvWatchLog(strings.NewReader(mpvLog))
	if err != nil {
		t.Fatalf("MpvWatchLog() error = %v", err)
	}
	want := []MpvWatch{
		// 60s before the pause, then 3m30s after play; the replay adds 30s.
		{VideoID: "abc123", Date: "2024-01-15", Duration: 300},
		// Counted on the day the video stopped.
		{VideoID: "xyz", Date: "2024-01-16", Duration: 120},
	}
	if len(log.Watches) != len(want) {
		t.Fatalf("got %d watches, want %d: %+v", len(log.Watches), len(want), log.Watches)
	}
	for i, w := range want {
		if log.Watches[i] != w {
			t.Errorf("watch %d = %+v, want %+v", i, log.Watches[i], w)
		}
	}
	if log.Skipped != 1 || log.Open != "" {
		t.Errorf("Skipped = %d, Open = %q, want 1 and empty", log.Skipped, log.Open)
	}
}

func TestMpvWatchLog_OpenVideo(t *testing.T) {
	log, err := MpvWatchLog(strings.NewReader(`{"kind":"loaded","time":"2024-01-15T20:00:00Z","path":"https://www.youtube.com/watch?v=abc123"}` + "\n"))
	if err != nil {
		t.Fatalf("MpvWatchLog() error = %v", err)
	}
	if log.Open != "abc123" || len(log.Watches) != 0 {
		t.Errorf("log = %+v, want abc123 open", log)
	}
}

func TestMpvWatchLog_BadTime(t *testing.T) {
	input := `{"kind":"loaded","time":"2024-01-15T20:00:00Z","path":"https://www.youtube.com/watch?v=abc123"}
{"kind":"pause","time":"later"}
`
	if _, err := MpvWatchLog(strings.NewReader(input)); Line(err) != 2 {
		t.Errorf("MpvWatchLog() error = %v, want line 2", err)
	}
}

func TestYoutubeVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=abc123":       "abc123",
		"https://www.youtube.com/watch?v=abc123]":      "abc123",
		"https://youtube.com/watch?list=L1&v=xyz&t=42": "xyz",
		"https://www.youtube.com/channel/UC123":        "",
		"://broken":                                    "",
	}
	for input, want := range tests {
		if got := YoutubeVideoID(input); got != want {
			t.Errorf("YoutubeVideoID(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestISODuration(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT0S", 0},
		{"P1DT1S", 86401},
		{"P1W", 604800},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ISODuration(tt.input)
			if err != nil || got != tt.want {
				t.Errorf("ISODuration() = %d, %v, want %d", got, err, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "1H", "P", "PT1X", "P1M", "PT5"} {
		if _, err := ISODuration(bad); err == nil {
			t.Errorf("ISODuration(%q) error = nil", bad)
		}
	}
}

const videoResponse = `{"items": [{
  "id": "abc123",
  "snippet": {"publishedAt": "2023-05-01T12:00:00Z", "channelId": "UC1", "title": "A talk",
              "categoryId": "28", "defaultLanguage": "en"},
  "contentDetails": {"duration": "PT12M5S"}
}]}`

func TestYoutubeVideo(t *testing.T) {
	video, err := YoutubeVideo([]byte(videoResponse))
	if err != nil {
		t.Fatalf("YoutubeVideo() error = %v", err)
	}
	if video.ID != "abc123" || video.ChannelID != "UC1" || video.CategoryID != "28" || video.Name != "A talk" || video.Language != "en" {
		t.Errorf("video = %+v", video)
	}
	if video.URL != "https://youtube.com/watch?v=abc123" || video.Duration != 725 {
		t.Errorf("video = %+v", video)
	}
	if want := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC); !video.Created.Equal(want) {
		t.Errorf("Created = %v, want %v", video.Created, want)
	}

	if video, err := YoutubeVideo([]byte(`{"items": []}`)); video != nil || err != nil {
		t.Errorf("YoutubeVideo(no items) = %+v, %v, want nil, nil", video, err)
	}
	if _, err := YoutubeVideo([]byte(`{"items": [{"id": "x", "snippet": {}, "contentDetails": {"duration": "PT1S"}}]}`)); err == nil {
		t.Error("expected error for a video without channel")
	}
	if _, err := YoutubeVideo([]byte(`{"items": [{"id": "x", "snippet": {"channelId": "UC1"}}]}`)); err == nil {
		t.Error("expected error for a video without duration")
	}
}

func TestYoutubeChannel(t *testing.T) {
	channel, err := YoutubeChannel([]byte(`{"items": [{"snippet": {"title": "Talks", "description": "d", "country": "DE"}}]}`), "UC1")
	if err != nil {
		t.Fatalf("YoutubeChannel() error = %v", err)
	}
	if channel.ID != "UC1" || channel.Name != "Talks" || channel.Description != "d" || channel.Country != "DE" || channel.URL != "https://youtube.com/c/UC1" {
		t.Errorf("channel = %+v", channel)
	}

	channel, err = YoutubeChannel([]byte(`{"items": []}`), "UC2")
	if err != nil || channel.Name != "unknown" {
		t.Errorf("YoutubeChannel(no items) = %+v, %v, want unknown", channel, err)
	}
}
