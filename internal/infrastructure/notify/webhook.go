package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadscore/backend/internal/domain/scoring"
	"go.uber.org/zap"
)

// WebhookNotifier posts monitor alerts to a configured webhook URL.
// Delivery is best effort; the alert is already persisted by the time
// Notify is called.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier. An empty URL yields a
// notifier that silently drops alerts.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Tool       string  `json:"tool_name"`
	Version    string  `json:"rule_version,omitempty"`
	Check      string  `json:"check"`
	Severity   string  `json:"severity"`
	Message    string  `json:"message"`
	Value      float64 `json:"value"`
	Threshold  float64 `json:"threshold"`
	SampleSize int64   `json:"sample_size"`
	OccurredAt string  `json:"occurred_at"`
}

// Notify delivers one alert.
func (n *WebhookNotifier) Notify(ctx context.Context, alert *scoring.Alert) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{
		Tool:       alert.ToolName,
		Version:    alert.RuleVersion,
		Check:      alert.Check,
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		Value:      alert.Value,
		Threshold:  alert.Threshold,
		SampleSize: alert.SampleSize,
		OccurredAt: alert.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Debug("alert delivered to webhook",
		zap.String("tool", alert.ToolName),
		zap.String("check", alert.Check))
	return nil
}
