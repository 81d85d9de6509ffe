// Package subscriptions provides an HTTP client for the subscription backend
// that owns customer entitlements.
package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client implements ports.EntitlementService over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new subscription backend client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type activateRequest struct {
	CustomerEmail string `json:"customer_email"`
	PlanID        string `json:"plan_id"`
	TransactionID string `json:"transaction_id"`
	StartedAt     string `json:"started_at"`
}

type suspendRequest struct {
	CustomerEmail string `json:"customer_email"`
	Reason        string `json:"reason"`
}

// ActivateEntitlement grants the plan to the customer.
// POST /api/v1/entitlements/activate
// The backend treats a repeated transaction id as a no-op.
func (c *Client) ActivateEntitlement(ctx context.Context, customerEmail, planID, transactionID string) error {
	return c.post(ctx, "/api/v1/entitlements/activate", activateRequest{
		CustomerEmail: customerEmail,
		PlanID:        planID,
		TransactionID: transactionID,
		StartedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

// SuspendEntitlement revokes access for the customer.
// POST /api/v1/entitlements/suspend
func (c *Client) SuspendEntitlement(ctx context.Context, customerEmail, reason string) error {
	return c.post(ctx, "/api/v1/entitlements/suspend", suspendRequest{
		CustomerEmail: customerEmail,
		Reason:        reason,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	url := c.baseURL + path

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("subscription backend returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
