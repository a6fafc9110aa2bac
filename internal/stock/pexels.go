package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Compile-time check that Client implements Source.
var _ Source = (*Client)(nil)

// Static errors for the Pexels client.
var (
	// ErrAPIKeyRequired is returned when the client is built without a key.
	ErrAPIKeyRequired = errors.New("stock: API key is required")
	// ErrRateLimited is returned when the API answers 429.
	ErrRateLimited = errors.New("stock: rate limited")
	// ErrUnauthorized is returned when the API rejects the key.
	ErrUnauthorized = errors.New("stock: unauthorized")
	// ErrRequestFailed is returned for any other non-2xx status or transport failure.
	ErrRequestFailed = errors.New("stock: request failed")
	// ErrMalformedResponse is returned when the search body cannot be decoded.
	ErrMalformedResponse = errors.New("stock: malformed response")
	// ErrDownloadFailed is returned when a rendition cannot be downloaded.
	ErrDownloadFailed = errors.New("stock: download failed")
)

const (
	defaultBaseURL         = "https://api.pexels.com"
	defaultPerPage         = 15
	maxPerPage             = 80
	defaultSearchTimeout   = 15 * time.Second
	defaultDownloadTimeout = 60 * time.Second
)

// Source searches candidates and streams renditions.
type Source interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
	Open(ctx context.Context, link string) (io.ReadCloser, error)
}

// Client is a Pexels video search client restricted to portrait results.
type Client struct {
	apiKey         string
	baseURL        string
	perPage        int
	searchClient   *http.Client
	downloadClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient uses hc for both searches and downloads.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.searchClient = hc
		c.downloadClient = hc
	}
}

// WithPerPage sets how many candidates a search requests. Values above 80 are capped.
func WithPerPage(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.perPage = min(n, maxPerPage)
		}
	}
}

// WithSearchTimeout sets the per-search timeout.
func WithSearchTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.searchClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Pexels client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &Client{
		apiKey:         apiKey,
		baseURL:        defaultBaseURL,
		perPage:        defaultPerPage,
		searchClient:   &http.Client{Timeout: defaultSearchTimeout},
		downloadClient: &http.Client{Timeout: defaultDownloadTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchResponse struct {
	Videos []struct {
		ID       int64   `json:"id"`
		Width    int     `json:"width"`
		Height   int     `json:"height"`
		Duration float64 `json:"duration"`
		URL      string  `json:"url"`
		User     struct {
			Name string `json:"name"`
		} `json:"user"`
		VideoFiles []json.RawMessage `json:"video_files"`
	} `json:"videos"`
}

type videoFile struct {
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Link    string `json:"link"`
}

// Search queries portrait videos for query.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "portrait")
	params.Set("size", "medium")
	params.Set("per_page", strconv.Itoa(c.perPage))

	endpoint := c.baseURL + "/videos/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("stock: create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.searchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w with status %d", ErrRequestFailed, resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	candidates := make([]Candidate, 0, len(out.Videos))
	for _, v := range out.Videos {
		candidates = append(candidates, Candidate{
			ID:         v.ID,
			Duration:   v.Duration,
			Width:      v.Width,
			Height:     v.Height,
			Author:     v.User.Name,
			PageURL:    v.URL,
			Renditions: decodeRenditions(v.VideoFiles),
		})
	}
	return candidates, nil
}

// decodeRenditions drops descriptors that are null or not JSON objects.
func decodeRenditions(raw []json.RawMessage) []Rendition {
	out := make([]Rendition, 0, len(raw))
	for _, r := range raw {
		trimmed := strings.TrimSpace(string(r))
		if !strings.HasPrefix(trimmed, "{") {
			continue
		}
		var f videoFile
		if err := json.Unmarshal(r, &f); err != nil {
			continue
		}
		out = append(out, Rendition{
			Quality: f.Quality,
			Width:   f.Width,
			Height:  f.Height,
			Link:    f.Link,
		})
	}
	return out
}

// Open starts downloading link. The caller must close the returned body.
func (c *Client) Open(ctx context.Context, link string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w with status %d", ErrDownloadFailed, resp.StatusCode)
	}
	return resp.Body, nil
}
