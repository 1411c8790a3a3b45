package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
)

// WebhookNotifier posts notification events to the portal's messaging hub.
// Delivery is best effort; callers must never treat a failure as fatal.
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(webhookURL string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// notification represents the webhook payload
type notification struct {
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// Notify delivers one notification to the hub
func (n *WebhookNotifier) Notify(ctx context.Context, userID, notificationType string, payload map[string]interface{}) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(notification{
		UserID:    userID,
		Type:      notificationType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		n.logger.Warn("Notification hub returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("type", notificationType),
			zap.ByteString("body", respBody))
		return fmt.Errorf("notification hub returned status %d", resp.StatusCode)
	}

	return nil
}

// Verify interface compliance
var _ port.Notifier = (*WebhookNotifier)(nil)
