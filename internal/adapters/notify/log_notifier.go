// Package notify provides log-backed implementations of the customer
// notification, operations alerting and entitlement ports. They stand in for
// the email provider and subscription backend when none is configured.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/logging"
)

// LogNotifier records every side effect as a structured log line.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) ActivateEntitlement(_ context.Context, customerEmail, planID, transactionID string) error {
	n.logger.Info("activate subscription",
		zap.String("customer_email", customerEmail),
		zap.String("plan_id", planID),
		zap.String("transaction_id", transactionID))
	return nil
}

func (n *LogNotifier) SuspendEntitlement(_ context.Context, customerEmail, reason string) error {
	n.logger.Warn("suspend subscription",
		zap.String("customer_email", customerEmail),
		zap.String("reason", reason))
	return nil
}

func (n *LogNotifier) NotifyPaymentFailed(_ context.Context, customerEmail, reason string) error {
	n.logger.Info("payment refused notice",
		zap.String("customer_email", customerEmail),
		zap.String("reason", reason))
	return nil
}

func (n *LogNotifier) SendPixInstructions(_ context.Context, customerEmail, pixCode string) error {
	n.logger.Info("pix instructions",
		zap.String("customer_email", customerEmail),
		zap.String("pix_code", logging.Mask(pixCode)))
	return nil
}

func (n *LogNotifier) SendBoletoInstructions(_ context.Context, customerEmail, boletoURL string) error {
	n.logger.Info("boleto instructions",
		zap.String("customer_email", customerEmail),
		zap.String("boleto_url", boletoURL))
	return nil
}

func (n *LogNotifier) AlertOperations(_ context.Context, tx domain.GatewayTransaction) error {
	n.logger.Error("chargeback detected",
		zap.String("transaction_id", tx.ID),
		zap.Int64("amount", tx.Amount),
		zap.String("customer_email", tx.Customer.Email))
	return nil
}
