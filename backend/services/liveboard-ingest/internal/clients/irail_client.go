package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"liveboard/backend/services/liveboard-ingest/internal/models"
)

const (
	liveboardPath   = "/liveboard/"
	maxResponseBody = 4 << 20
	maxErrorBody    = 512
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// UpstreamError reports a failed liveboard request: transport error, timeout,
// non-2xx status or an undecodable body.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IRailConfig holds request settings for the iRail API.
type IRailConfig struct {
	BaseURL   string
	UserAgent string
	Language  string
}

// IRailClient fetches station liveboards from the iRail API.
type IRailClient struct {
	baseURL   string
	userAgent string
	language  string
	client    HTTPDoer
}

// NewIRailClient builds client with base URL. The timeout is owned by the HTTPDoer.
func NewIRailClient(cfg IRailConfig, client HTTPDoer) *IRailClient {
	return &IRailClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		client:    client,
	}
}

// Liveboard issues exactly one GET for the station's departures. It never retries.
// A board without departures is returned as-is; callers decide what empty means.
func (c *IRailClient) Liveboard(ctx context.Context, station string) (*models.Liveboard, error) {
	query := url.Values{}
	query.Set("station", station)
	query.Set("format", "json")
	if c.language != "" {
		query.Set("lang", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+liveboardPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	var board models.Liveboard
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&board); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("decode liveboard: %w", err)}
	}
	return &board, nil
}
