package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
)

// Client queries the treasury payment gateway for fee completion state. The
// redirect flow and webhooks live entirely on the gateway side.
type Client struct {
	baseURL    string
	merchantID string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new payment gateway client
func NewClient(baseURL, merchantID, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		merchantID: merchantID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// statusResponse represents the gateway's payment status payload
type statusResponse struct {
	Status     string  `json:"status"`
	AmountPaid float64 `json:"amount_paid"`
}

// GetPaymentStatus fetches the completion state of an application's fee
func (c *Client) GetPaymentStatus(ctx context.Context, applicationID int64) (*port.PaymentStatus, error) {
	url := fmt.Sprintf("%s/api/v1/merchants/%s/payments/%d", c.baseURL, c.merchantID, applicationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	// An unknown application has simply not paid yet
	if resp.StatusCode == http.StatusNotFound {
		return &port.PaymentStatus{IsComplete: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Payment gateway returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.Int64("application_id", applicationID),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var payload statusResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &port.PaymentStatus{
		IsComplete: payload.Status == "SUCCESS",
		AmountPaid: payload.AmountPaid,
	}, nil
}

// Verify interface compliance
var _ port.PaymentGateway = (*Client)(nil)
