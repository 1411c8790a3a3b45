package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/civicgrid/licensing-portal/internal/application/port"
)

// Client reads verification statuses from the central document service. File
// bytes never pass through here.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new document store client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// statusResponse represents the document service's status payload
type statusResponse struct {
	DocumentRef string `json:"document_ref"`
	Status      string `json:"status"`
}

// GetVerificationStatus fetches the verification status of one document
func (c *Client) GetVerificationStatus(ctx context.Context, documentRef string) (string, error) {
	endpoint := c.baseURL + "/api/v1/documents/" + url.PathEscape(documentRef) + "/status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("document service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read document service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Document service returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("document_ref", documentRef),
			zap.ByteString("body", body))
		return "", fmt.Errorf("document service returned status %d", resp.StatusCode)
	}

	var payload statusResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode document service response: %w", err)
	}
	return payload.Status, nil
}

// Verify interface compliance
var _ port.DocumentStore = (*Client)(nil)
