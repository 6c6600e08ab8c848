package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 5 * 1024 * 1024

// Client issues outbound search and scrape requests with retries.
type Client struct {
	httpClient *http.Client
	userAgent  string
	retries    int
	searchURL  string
}

// NewClient constructs a tool HTTP client.
func NewClient(timeout time.Duration, retries int, userAgent string, opts ...func(*Client)) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		retries:    retries,
		searchURL:  "https://html.duckduckgo.com/html/",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSearchURL overrides the search endpoint (useful for tests).
func WithSearchURL(url string) func(*Client) {
	return func(c *Client) {
		if url != "" {
			c.searchURL = url
		}
	}
}

// WithHTTPClient overrides the internal HTTP client.
func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// get fetches a URL with retries and exponential backoff.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, "", nil)
}

// postForm posts form values with retries and exponential backoff.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodPost, rawURL, "application/x-www-form-urlencoded", []byte(form.Encode()))
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(string(body)))
		if err != nil {
			return nil, fmt.Errorf("tools: create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			continue
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("tools: %s %s: %w", method, rawURL, lastErr)
}
