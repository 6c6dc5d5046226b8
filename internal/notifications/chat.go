package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/template"
)

const chatTimeout = 15 * time.Second

// SlackNotifier posts rendered messages to Slack-compatible incoming
// webhooks. It satisfies the automation executor's ChatNotifier contract.
type SlackNotifier struct {
	renderer   *template.Renderer
	httpClient *http.Client
}

// NewSlackNotifier creates a notifier. A nil httpClient uses a default
// with a bounded timeout.
func NewSlackNotifier(renderer *template.Renderer, httpClient *http.Client) *SlackNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: chatTimeout}
	}
	return &SlackNotifier{renderer: renderer, httpClient: httpClient}
}

// Notify renders templateID with vars and posts it as a Slack message.
func (n *SlackNotifier) Notify(ctx context.Context, webhookURL, templateID string, vars map[string]interface{}) error {
	if webhookURL == "" {
		return fmt.Errorf("chat webhook url is required")
	}
	text, err := n.renderer.Render(templateID, vars)
	if err != nil {
		return fmt.Errorf("failed to render chat message %q: %w", templateID, err)
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chat webhook returned status %d", resp.StatusCode)
	}
	return nil
}
