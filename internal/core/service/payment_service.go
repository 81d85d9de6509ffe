// Package service implements the core business logic.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/checkout"
	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/core/ports"
)

// PaymentService orchestrates checkout and transaction lookups.
type PaymentService struct {
	gateway ports.PaymentGateway
	builder *checkout.Builder
	store   ports.StatusStore
	logger  *zap.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	gateway ports.PaymentGateway,
	builder *checkout.Builder,
	store ports.StatusStore,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		gateway: gateway,
		builder: builder,
		store:   store,
		logger:  logger.Named("payments"),
	}
}

// Checkout builds the gateway payload for intent and issues exactly one
// create-transaction call. The returned error, when non-nil, is classified
// and carries the normalized kind used by the HTTP layer.
func (s *PaymentService) Checkout(ctx context.Context, intent domain.OrderIntent) (*domain.CheckoutResult, error) {
	payload, err := s.builder.BuildTransactionPayload(intent)
	if err != nil {
		return nil, err
	}

	tx, err := s.gateway.CreateTransaction(ctx, payload)
	if err != nil {
		s.logCheckoutError(payload, err)
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("transaction_id", tx.ID),
		zap.String("status", string(tx.Status)),
		zap.String("payment_method", string(payload.PaymentMethod)),
		zap.Int64("amount", payload.Amount),
		zap.String("order_ref", payload.Metadata[checkout.MetaOrderRef]))

	return &domain.CheckoutResult{
		Success:       true,
		Status:        tx.Status,
		TransactionID: tx.ID,
		SecureURL:     tx.SecureURL,
		PixCode:       tx.PixCode,
		PixQRCode:     tx.PixQRCode,
		BoletoURL:     tx.BoletoURL,
		Message:       resultMessage(payload.PaymentMethod, tx.Status),
	}, nil
}

func (s *PaymentService) logCheckoutError(payload domain.TransactionPayload, err error) {
	fields := []zap.Field{
		zap.String("kind", domain.Code(err)),
		zap.String("payment_method", string(payload.PaymentMethod)),
		zap.String("idempotency_key", payload.IdempotencyKey),
		zap.Error(err),
	}
	// Declines and caller mistakes are business outcomes.
	if errors.Is(err, domain.ErrPaymentDeclined) || errors.Is(err, domain.ErrValidation) {
		s.logger.Info("checkout rejected", fields...)
		return
	}
	s.logger.Error("checkout failed", fields...)
}

func resultMessage(method domain.PaymentMethod, status domain.TransactionStatus) string {
	switch {
	case status == domain.StatusPaid:
		return "Payment approved"
	case status == domain.StatusRefused:
		return "Payment refused"
	case method == domain.MethodPix:
		return "Scan the PIX code to finish your payment"
	case method == domain.MethodBoleto:
		return "Boleto generated, pay it before the due date"
	}
	return "Payment is being processed"
}

// TransactionView is a gateway transaction together with the status this
// service has accepted from webhooks.
type TransactionView struct {
	Transaction *domain.GatewayTransaction `json:"transaction"`
	LocalStatus domain.TransactionStatus   `json:"local_status,omitempty"`
}

// Lookup fetches a transaction from the gateway and the locally accepted
// status for it.
func (s *PaymentService) Lookup(ctx context.Context, id string) (*TransactionView, error) {
	tx, err := s.gateway.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	local, err := s.store.Status(ctx, id)
	if err != nil {
		s.logger.Warn("status store lookup failed", zap.String("transaction_id", id), zap.Error(err))
	}
	return &TransactionView{Transaction: tx, LocalStatus: local}, nil
}
