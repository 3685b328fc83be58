package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sqrt-go/internal/config"
)

func newYoutubeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"code":403}}`)
			return
		}
		if r.URL.Query().Get("part") != "snippet,contentDetails" {
			t.Errorf("part = %q", r.URL.Query().Get("part"))
		}
		switch r.URL.Query().Get("id") {
		case "abc123":
			fmt.Fprint(w, `{"items":[{"id":"abc123","snippet":{"channelId":"UC1","title":"A talk"},"contentDetails":{"duration":"PT1M"}}]}`)
		default:
			fmt.Fprint(w, `{"items":[]}`)
		}
	})
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "UC1" {
			t.Errorf("channel id = %q", r.URL.Query().Get("id"))
		}
		fmt.Fprint(w, `{"items":[{"snippet":{"title":"Talks"}}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newYoutubeTestClient(t *testing.T, srv *httptest.Server, key string) *YoutubeClient {
	t.Helper()
	c, err := NewYoutubeClient(config.YoutubeConfig{APIURL: srv.URL + "/youtube/v3/", APIKey: key, TimeoutSeconds: 5})
	if err != nil {
		t.Fatalf("NewYoutubeClient() error = %v", err)
	}
	return c
}

func TestYoutubeClient_Video(t *testing.T) {
	srv := newYoutubeServer(t)
	c := newYoutubeTestClient(t, srv, "secret")

	video, channel, err := c.Video(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Video() error = %v", err)
	}
	if video == nil || video.ID != "abc123" || video.Duration != 60 {
		t.Errorf("video = %+v", video)
	}
	if channel == nil || channel.ID != "UC1" || channel.Name != "Talks" {
		t.Errorf("channel = %+v", channel)
	}

	video, channel, err = c.Video(context.Background(), "gone")
	if err != nil || video != nil || channel != nil {
		t.Errorf("Video(gone) = %+v, %+v, %v, want nils", video, channel, err)
	}
}

func TestYoutubeClient_RejectedKey(t *testing.T) {
	srv := newYoutubeServer(t)
	if _, _, err := newYoutubeTestClient(t, srv, "wrong").Video(context.Background(), "abc123"); err == nil {
		t.Error("expected error for rejected key")
	}
}

func TestNewYoutubeClient_RequiresKey(t *testing.T) {
	if _, err := NewYoutubeClient(config.YoutubeConfig{APIURL: "https://example.com"}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := NewYoutubeClient(config.YoutubeConfig{APIKey: "k"}); err == nil {
		t.Error("expected error without api url")
	}
}
