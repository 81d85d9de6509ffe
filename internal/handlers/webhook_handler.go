package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/adapters/furiapay"
	"github.com/petbox/petbox-payments/internal/adapters/mercadopago"
	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/core/ports"
	"github.com/petbox/petbox-payments/internal/core/service"
)

const maxWebhookBody = 1 << 20

// EventDispatcher is the part of service.WebhookDispatcher the handlers use.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.WebhookEvent) (service.Outcome, error)
	Pending(ctx context.Context) ([]domain.SideEffect, error)
}

// WebhookHandler receives gateway notifications.
type WebhookHandler struct {
	dispatcher EventDispatcher
	// validator is nil when no webhook secret is configured.
	validator ports.WebhookValidator
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler. A nil validator disables
// signature checks.
func NewWebhookHandler(dispatcher EventDispatcher, validator ports.WebhookValidator, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, validator: validator, logger: logger}
}

// Receive handles POST /webhook and POST /webhook/furia
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.KindMalformedWebhook})
		return
	}

	if h.validator != nil && !h.validator.ValidateSignature(body, c.GetHeader(furiapay.SignatureHeader)) {
		h.logger.Warn("webhook signature validation failed", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		return
	}

	event, err := furiapay.ParseWebhook(body)
	if err != nil {
		h.logger.Warn("malformed webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.KindMalformedWebhook})
		return
	}

	acknowledge(c, h.dispatcher, *event)
}

// acknowledge dispatches event and writes the gateway acknowledgement.
func acknowledge(c *gin.Context, dispatcher EventDispatcher, event domain.WebhookEvent) {
	if _, err := dispatcher.Dispatch(c.Request.Context(), event); err != nil {
		// Only the status store can fail here; let the gateway redeliver.
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.KindInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// MethodNotAllowed handles GET /webhook
func (h *WebhookHandler) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error":   "method_not_allowed",
		"message": "Webhook endpoint only accepts POST",
	})
}

// MercadoPagoWebhookHandler turns Mercado Pago payment notifications into
// webhook events. MP only sends the payment id, so the payment is fetched
// before dispatching.
type MercadoPagoWebhookHandler struct {
	gateway    ports.PaymentGateway
	dispatcher EventDispatcher
	validator  *mercadopago.WebhookValidator
	logger     *zap.Logger
}

// NewMercadoPagoWebhookHandler creates the Mercado Pago notification handler.
func NewMercadoPagoWebhookHandler(
	gateway ports.PaymentGateway,
	dispatcher EventDispatcher,
	validator *mercadopago.WebhookValidator,
	logger *zap.Logger,
) *MercadoPagoWebhookHandler {
	return &MercadoPagoWebhookHandler{gateway: gateway, dispatcher: dispatcher, validator: validator, logger: logger}
}

// Receive handles POST /webhook/mercadopago
func (h *MercadoPagoWebhookHandler) Receive(c *gin.Context) {
	var n mercadopago.Notification
	if err := c.ShouldBindJSON(&n); err != nil || n.Data.ID == "" {
		// MP may send other formats, log and accept
		h.logger.Info("ignoring unrecognized mercado pago notification")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if h.validator.Enabled() && !h.validator.ValidateSignature(c.GetHeader("x-signature"), c.GetHeader("x-request-id"), n.Data.ID) {
		h.logger.Warn("mercado pago signature validation failed", zap.String("payment_id", n.Data.ID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
		return
	}

	if n.Type != "payment" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	tx, err := h.gateway.GetTransaction(c.Request.Context(), n.Data.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) || errors.Is(err, domain.ErrValidation) {
			h.logger.Warn("notification for unknown payment", zap.String("payment_id", n.Data.ID), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.logger.Error("fetch notified payment failed", zap.String("payment_id", n.Data.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.KindInternal})
		return
	}

	event := domain.WebhookEvent{
		Event:       mercadopago.EventForStatus(tx.Status),
		Transaction: *tx,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	acknowledge(c, h.dispatcher, event)
}
