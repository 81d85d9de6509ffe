// Package furiapay implements the PaymentGateway port against the FuriaPay REST API.
package furiapay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/config"
	"github.com/petbox/petbox-payments/internal/core/domain"
)

const (
	userAgent       = "PetBox/1.0"
	maxResponseSize = 1 << 20
)

// Client implements ports.PaymentGateway.
// Every call is a single attempt; retrying a transaction creation is the
// caller's decision and must reuse the same idempotency key.
type Client struct {
	cfg        config.FuriaPayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a FuriaPay client bounded by the configured timeout.
func NewClient(cfg config.FuriaPayConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: logger,
	}
}

// CreateTransaction handles POST <base>/transactions.
func (c *Client) CreateTransaction(ctx context.Context, payload domain.TransactionPayload) (*domain.GatewayTransaction, error) {
	if !c.cfg.IsConfigured() {
		return nil, domain.NewServiceError(domain.ErrConfiguration,
			"payment gateway credentials are not configured", domain.KindConfiguration)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrValidation,
			errors.Wrap(err, "marshal transaction payload").Error(), domain.KindValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL()+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrNetwork,
			errors.Wrap(err, "build gateway request").Error(), domain.KindNetwork)
	}
	if payload.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", payload.IdempotencyKey)
	}

	tx, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if payload.PaymentMethod == domain.MethodPix && tx.SecureURL == "" && tx.PixCode == "" {
		c.logger.Warn("pix transaction without payment instructions", zap.String("transaction_id", tx.ID))
		return nil, domain.NewServiceError(domain.ErrInvalidResponse,
			"gateway returned a PIX transaction without secure_url or pix_code", domain.KindIncompletePixResponse)
	}

	c.logger.Info("gateway transaction created",
		zap.String("transaction_id", tx.ID),
		zap.String("status", string(tx.Status)),
		zap.String("payment_method", string(payload.PaymentMethod)),
		zap.Int64("amount", payload.Amount))

	return tx, nil
}

// GetTransaction handles GET <base>/transactions/{id}.
func (c *Client) GetTransaction(ctx context.Context, id string) (*domain.GatewayTransaction, error) {
	if !c.cfg.IsConfigured() {
		return nil, domain.NewServiceError(domain.ErrConfiguration,
			"payment gateway credentials are not configured", domain.KindConfiguration)
	}

	endpoint := fmt.Sprintf("%s/transactions/%s", c.cfg.APIBaseURL(), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrNetwork,
			errors.Wrap(err, "build gateway request").Error(), domain.KindNetwork)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*domain.GatewayTransaction, error) {
	req.Header.Set("Authorization", c.cfg.AuthHeader())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", zap.String("path", req.URL.Path), zap.Error(err))
		return nil, domain.NewServiceError(domain.ErrNetwork,
			"could not reach payment gateway", domain.KindNetwork)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Warn("gateway response read failed", zap.Error(err))
		return nil, domain.NewServiceError(domain.ErrNetwork,
			errors.Wrap(err, "read gateway response").Error(), domain.KindNetwork)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		tx, err := decodeTransaction(body)
		if err != nil {
			c.logger.Warn("unparseable gateway response", zap.Int("status", resp.StatusCode), zap.Error(err))
			return nil, domain.NewServiceError(domain.ErrInvalidResponse,
				"payment gateway returned an unreadable response", domain.KindInvalidResponse)
		}
		return tx, nil
	}

	gwErr := classify(resp.StatusCode, body)
	c.logger.Info("gateway rejected request",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", domain.Code(gwErr)))
	return nil, gwErr
}

// errorBody is the gateway's error envelope.
type errorBody struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	RefuseReason string `json:"refuse_reason"`
}

// classify maps a non-2xx gateway status onto the normalized error taxonomy.
func classify(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	detail := strings.TrimSpace(eb.Message)
	if detail == "" {
		detail = strings.TrimSpace(eb.Error)
	}
	withDetail := func(msg string) string {
		if detail == "" {
			return msg
		}
		return msg + " (" + detail + ")"
	}

	switch {
	case status == http.StatusBadRequest:
		return domain.NewServiceError(domain.ErrValidation, withDetail("check payment data"), domain.KindValidation)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.NewServiceError(domain.ErrGatewayAuth, "payment gateway rejected our credentials", domain.KindAuthentication)
	case status == http.StatusPaymentRequired:
		msg := "payment was declined"
		if eb.RefuseReason != "" {
			msg += ": " + eb.RefuseReason
		}
		return domain.NewServiceError(domain.ErrPaymentDeclined, msg, domain.KindDeclined)
	case status == http.StatusNotFound:
		return domain.NewServiceError(domain.ErrTransactionNotFound, withDetail("transaction not found"), domain.KindNotFound)
	case status == http.StatusTooManyRequests:
		return domain.NewServiceError(domain.ErrRateLimited, "too many payment attempts, try again shortly", domain.KindRateLimited)
	case status >= 500:
		return domain.NewServiceError(domain.ErrGatewayUnavailable,
			fmt.Sprintf("payment gateway unavailable (status %d)", status), domain.KindGatewayUnavailable)
	case status >= 400:
		return domain.NewServiceError(domain.ErrValidation, withDetail("check payment data"), domain.KindValidation)
	}
	return domain.NewServiceError(domain.ErrInvalidResponse,
		fmt.Sprintf("unexpected gateway status %d", status), domain.KindInvalidResponse)
}
