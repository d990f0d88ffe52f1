package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const webhookTimeout = 30 * time.Second

// Notifier handles webhook delivery
type Notifier struct {
	httpClient *http.Client
	log        *slog.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(log *slog.Logger) *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: webhookTimeout,
		},
		log: log,
	}
}

// SendWebhook sends an event via HTTP POST
func (n *Notifier) SendWebhook(ctx context.Context, url string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Error("marshaling event for webhook", "error", err)
		return err
	}

	// Attempt with retries
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Pagegraph-Event", event.Type)

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = err
			n.log.Warn("webhook delivery attempt failed", "attempt", attempt+1, "url", url, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		lastErr = &WebhookError{
			URL:        url,
			StatusCode: resp.StatusCode,
		}
		n.log.Warn("webhook delivery attempt got bad status", "attempt", attempt+1, "url", url, "status", resp.StatusCode)
	}

	n.log.Error("webhook delivery failed after 3 attempts", "url", url, "error", lastErr)
	return lastErr
}

// WebhookError represents a webhook delivery failure
type WebhookError struct {
	URL        string
	StatusCode int
}

func (e *WebhookError) Error() string {
	return "webhook delivery failed"
}
