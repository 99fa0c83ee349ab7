// Package forward pushes line-protocol payloads to a time-series write endpoint.
package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single push when the caller sets none.
const DefaultTimeout = 5 * time.Second

// ForwardError is a failed push: either a transport error (Err set) or a
// non-2xx response (StatusCode set).
type ForwardError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ForwardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forward to %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("forward to %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *ForwardError) Unwrap() error { return e.Err }

// Client POSTs payloads to one write URL. It never retries.
type Client struct {
	url    string
	client *resty.Client
}

// New returns a Client for url. A non-positive timeout uses DefaultTimeout.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "text/plain; charset=utf-8")
	return &Client{url: url, client: c}
}

// Forward sends payload as the request body.
func (c *Client) Forward(ctx context.Context, payload string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return &ForwardError{URL: c.url, Err: err}
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &ForwardError{URL: c.url, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
