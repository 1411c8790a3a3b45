package hsm

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

// Client talks to the hardware security module's REST facade. Signing is
// asynchronous on the HSM side; this client only submits requests and polls
// status.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new HSM client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// signRequest represents the request body for the signing endpoint
type signRequest struct {
	ApplicationID int64  `json:"application_id"`
	RoleSlot      string `json:"role_slot"`
	DocumentRef   string `json:"document_ref"`
}

// signResponse represents the response from the signing endpoint
type signResponse struct {
	SignatureID string `json:"signature_id"`
	Status      string `json:"status"`
}

// statusResponse represents the response from the status endpoint
type statusResponse struct {
	Status     string `json:"status"`
	IsVerified bool   `json:"is_verified"`
}

// RequestSignature submits a signing request for one stage of an application
func (c *Client) RequestSignature(ctx context.Context, applicationID int64, roleSlot, documentRef string) (*port.SignatureRequest, error) {
	body, err := json.Marshal(signRequest{
		ApplicationID: applicationID,
		RoleSlot:      roleSlot,
		DocumentRef:   documentRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign request: %w", err)
	}

	c.logger.Debug("Requesting HSM signature",
		zap.Int64("application_id", applicationID),
		zap.String("role_slot", roleSlot))

	var resp signResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/signatures", body, &resp); err != nil {
		return nil, err
	}

	return &port.SignatureRequest{
		SignatureID: resp.SignatureID,
		Status:      resp.Status,
	}, nil
}

// GetSignatureStatus polls the HSM for a signature's progress
func (c *Client) GetSignatureStatus(ctx context.Context, signatureID string) (*port.SignatureStatus, error) {
	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/signatures/"+signatureID, nil, &resp); err != nil {
		return nil, err
	}

	return &port.SignatureStatus{
		Status:     resp.Status,
		IsVerified: resp.IsVerified,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hsm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read hsm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("HSM returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("path", path),
			zap.ByteString("body", respBody))
		return fmt.Errorf("hsm returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode hsm response: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.SignatureService = (*Client)(nil)
