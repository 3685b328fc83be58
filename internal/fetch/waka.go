// Package fetch downloads the exports of remote services.
package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sqrt-go/internal/config"
	"sqrt-go/internal/parse"
	"sqrt-go/internal/sqrt"
)

const (
	defaultWakaTimeout = 60 * time.Second
	maxErrorBody       = 512
)

// WakaClient lists and downloads WakaTime data dumps.
type WakaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ sqrt.DumpFetcher = (*WakaClient)(nil)

// NewWakaClient creates a client for the WakaTime API at cfg.APIURL.
func NewWakaClient(cfg config.WakaConfig) (*WakaClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("wakatime api key is not set")
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, fmt.Errorf("wakatime api url is not set")
	}

	timeout := defaultWakaTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &WakaClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// LatestDump returns the newest dump if it is completed, nil otherwise.
func (c *WakaClient) LatestDump(ctx context.Context) (*sqrt.Dump, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/current/datadumps", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey)))
	req.Header.Set("Accept", "application/json")

	body, err := do(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("listing dumps: %w", err)
	}
	dumps, err := parse.WakaDumpList(body)
	if err != nil {
		return nil, fmt.Errorf("decoding dump list: %w", err)
	}
	if len(dumps) == 0 {
		return nil, nil
	}

	newest := dumps[0]
	for _, d := range dumps[1:] {
		if d.CreatedAt.After(newest.CreatedAt) {
			newest = d
		}
	}
	if !newest.Completed || newest.DownloadURL == "" {
		return nil, nil
	}
	return &sqrt.Dump{ID: newest.ID, CreatedAt: newest.CreatedAt, DownloadURL: newest.DownloadURL}, nil
}

// Download streams the dump body to w. The download URL is presigned, so no
// credentials are sent with it.
func (c *WakaClient) Download(ctx context.Context, dump *sqrt.Dump, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dump.DownloadURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading dump %s: %w", dump.ID, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("downloading dump %s: %w", dump.ID, err)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading dump %s: %w", dump.ID, err)
	}
	return nil
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
