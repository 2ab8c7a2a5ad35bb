package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opsflare-systems/opsflare/event"
)

// Slack posts events to a Slack incoming webhook, formatted either as a Block
// Kit document or plain mrkdwn text.
type Slack struct {
	webhookURL string
	format     string
	client     *http.Client
}

const (
	// FormatBlocks renders a rich Block Kit layout.
	FormatBlocks = "blocks"
	// FormatPlain renders a single mrkdwn text message.
	FormatPlain = "plain"
)

// NewSlack creates the Slack destination. An empty webhook URL yields an inert
// destination: Enabled() is false and Send self-reports without a network call.
func NewSlack(webhookURL, format string) *Slack {
	if format != FormatPlain {
		format = FormatBlocks
	}
	return &Slack{
		webhookURL: webhookURL,
		format:     format,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Enabled() bool { return s != nil && s.webhookURL != "" }

// Send delivers the event, retrying transient failures a bounded number of
// times. It never panics and never blocks past the per-attempt timeout.
func (s *Slack) Send(ctx context.Context, ev *event.Event) Result {
	if !s.Enabled() {
		return Result{Destination: s.Name(), Err: ErrNotConfigured}
	}

	var payload map[string]any
	if s.format == FormatPlain {
		payload = plainPayload(ev)
	} else {
		payload = blocksPayload(ev)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Destination: s.Name(), Err: fmt.Errorf("marshal slack payload: %w", err), Attempts: 0}
	}

	return sendWithRetry(ctx, s.Name(), func(ctx context.Context) error {
		return s.post(ctx, body)
	})
}

func (s *Slack) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return transient(fmt.Errorf("send slack notification: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return transient(statusErr)
	}
	return statusErr
}
