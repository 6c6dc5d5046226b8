// Package webhook delivers signed event payloads to external HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of a delivered event.
type Envelope struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Client POSTs JSON envelopes with an HMAC-SHA256 signature header. The
// engine treats delivery as fire-and-forget per attempt: no retries here.
type Client struct {
	httpClient *http.Client
	secret     string
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a webhook client. The secret signs every payload; an
// empty secret disables signing.
func NewClient(secret string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		secret:     secret,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver POSTs one event to url and returns the response status code.
// Transport errors and timeouts return an error; any HTTP response,
// including non-2xx, returns its status code with a nil error so callers
// decide what counts as success.
func (c *Client) Deliver(ctx context.Context, url string, event string, payload interface{}, timeout time.Duration) (int, error) {
	envelope := Envelope{
		ID:        uuid.New().String(),
		Event:     event,
		Timestamp: c.now().UTC(),
		Data:      payload,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return 0, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-ID", envelope.ID)
	if c.secret != "" {
		req.Header.Set("X-Webhook-Signature", c.sign(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook delivery to %s failed: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}

// sign computes the hex HMAC-SHA256 of the payload.
func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
