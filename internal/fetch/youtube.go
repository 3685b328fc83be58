package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sqrt-go/internal/config"
	"sqrt-go/internal/model"
	"sqrt-go/internal/parse"
	"sqrt-go/internal/sqrt"
)

const defaultYoutubeTimeout = 30 * time.Second

// YoutubeClient reads video and channel metadata from the YouTube Data API.
type YoutubeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ sqrt.VideoCatalog = (*YoutubeClient)(nil)

// NewYoutubeClient creates a client for the Data API at cfg.APIURL.
func NewYoutubeClient(cfg config.YoutubeConfig) (*YoutubeClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("youtube api key is not set")
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, fmt.Errorf("youtube api url is not set")
	}

	timeout := defaultYoutubeTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &YoutubeClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Video fetches a video and then its channel.
func (c *YoutubeClient) Video(ctx context.Context, id string) (*model.YoutubeVideo, *model.YoutubeChannel, error) {
	body, err := c.get(ctx, "videos", url.Values{"part": {"snippet,contentDetails"}, "id": {id}})
	if err != nil {
		return nil, nil, fmt.Errorf("fetching video %s: %w", id, err)
	}
	video, err := parse.YoutubeVideo(body)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding video %s: %w", id, err)
	}
	if video == nil {
		return nil, nil, nil
	}

	body, err = c.get(ctx, "channels", url.Values{"part": {"snippet"}, "id": {video.ChannelID}})
	if err != nil {
		return nil, nil, fmt.Errorf("fetching channel %s: %w", video.ChannelID, err)
	}
	channel, err := parse.YoutubeChannel(body, video.ChannelID)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding channel %s: %w", video.ChannelID, err)
	}
	return video, channel, nil
}

func (c *YoutubeClient) get(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+resource+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return do(c.httpClient, req)
}
