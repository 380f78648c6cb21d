package gsheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"ledgerrecon/internal/config"
)

const maxAttempts = 5

var reSpreadsheetID = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// Client downloads spreadsheet exports over HTTP with rate limiting and
// retries on throttling and server errors.
type Client struct {
	httpClient *http.Client
	limiter    *RateLimiter
	backoff    time.Duration
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.SheetsTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.SheetsRateLimitRPS),
		backoff:    250 * time.Millisecond,
	}
}

// SpreadsheetID extracts the document ID from a Google Sheets URL.
func SpreadsheetID(ref string) (string, bool) {
	m := reSpreadsheetID.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExportURL rewrites a Google Sheets share or edit URL into its xlsx export
// URL. Other URLs are returned unchanged with ok=false.
func ExportURL(ref string) (string, bool) {
	id, ok := SpreadsheetID(ref)
	if !ok || !strings.Contains(ref, "docs.google.com") {
		return ref, false
	}
	return "https://docs.google.com/spreadsheets/d/" + id + "/export?format=xlsx", true
}

func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %q", u.Scheme)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("sheet download status %d", resp.StatusCode)
				if err := c.sleep(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("sheet download failed: status=%d url=%s", resp.StatusCode, u.Redacted())
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("sheet download failed")
	}
	return nil, lastErr
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	d := c.backoff*time.Duration(1<<(attempt-1)) + time.Duration(rand.Intn(100))*time.Millisecond
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
