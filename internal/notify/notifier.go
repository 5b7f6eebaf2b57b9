// Package notify posts progress messages to configured webhooks.
//
// Notifications are fire-and-forget: delivery failures are logged and
// never affect the run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/canonn-science/firmament/internal/config"
	"github.com/canonn-science/firmament/internal/logger"
)

// messagePrefix identifies this tool in shared notification channels.
const messagePrefix = "Firmament: "

// Notifier delivers progress messages. Important messages go to every
// webhook; routine ones only to webhooks marked verbose.
type Notifier interface {
	Send(ctx context.Context, message string, important bool)
}

// Nop discards all messages. Used when no webhooks are configured.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, string, bool) {}

// WebhookNotifier posts messages to Discord-style webhooks.
type WebhookNotifier struct {
	webhooks   []config.WebhookConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a Notifier for the configured webhooks. Returns Nop when the
// list is empty.
func New(webhooks []config.WebhookConfig, log *logger.Logger) Notifier {
	if len(webhooks) == 0 {
		return Nop{}
	}
	return &WebhookNotifier{
		webhooks:   webhooks,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log,
	}
}

// Send posts the message to each eligible webhook. Failures are logged and
// swallowed.
func (n *WebhookNotifier) Send(ctx context.Context, message string, important bool) {
	payload, err := json.Marshal(map[string]string{
		"content": messagePrefix + message,
	})
	if err != nil {
		n.logger.Warnw("Failed to encode notification", "error", err)
		return
	}

	for _, hook := range n.webhooks {
		if !hook.Verbose && !important {
			continue
		}
		if err := n.post(ctx, hook.URL, payload); err != nil {
			n.logger.Warnw("Failed to deliver notification", "error", err)
		}
	}
}

func (n *WebhookNotifier) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with %s", resp.Status)
	}
	return nil
}
