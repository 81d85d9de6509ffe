// Package ports defines the interfaces (ports) for the payment service.
// These are contracts that adapters must implement.
package ports

import (
	"context"
	"time"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// PaymentGateway creates and looks up transactions at the payment provider.
type PaymentGateway interface {
	// CreateTransaction issues exactly one transaction-creation call.
	CreateTransaction(ctx context.Context, payload domain.TransactionPayload) (*domain.GatewayTransaction, error)

	// GetTransaction retrieves a transaction by its gateway id.
	GetTransaction(ctx context.Context, id string) (*domain.GatewayTransaction, error)
}

// EntitlementService grants and revokes subscription access.
type EntitlementService interface {
	ActivateEntitlement(ctx context.Context, customerEmail, planID, transactionID string) error
	SuspendEntitlement(ctx context.Context, customerEmail, reason string) error
}

// CustomerNotifier sends payment related messages to customers.
type CustomerNotifier interface {
	NotifyPaymentFailed(ctx context.Context, customerEmail, reason string) error
	SendPixInstructions(ctx context.Context, customerEmail, pixCode string) error
	SendBoletoInstructions(ctx context.Context, customerEmail, boletoURL string) error
}

// OperationsAlerter pages the operations team.
type OperationsAlerter interface {
	AlertOperations(ctx context.Context, tx domain.GatewayTransaction) error
}

// StatusStore tracks the last accepted status per transaction.
type StatusStore interface {
	// Advance records next for id if it is a forward move on the status
	// lattice. It reports whether the transition was applied.
	Advance(ctx context.Context, id string, next domain.TransactionStatus) (bool, error)

	// Status returns the stored status, or "" if the transaction is unseen.
	Status(ctx context.Context, id string) (domain.TransactionStatus, error)
}

// Outbox holds failed webhook side effects until they succeed.
type Outbox interface {
	Enqueue(ctx context.Context, effect domain.SideEffect) error
	Due(ctx context.Context, now time.Time, limit int) ([]domain.SideEffect, error)
	Complete(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, lastErr string, next time.Time) error
	Pending(ctx context.Context) ([]domain.SideEffect, error)
}

// Authenticator is the identity collaborator used for operator login.
type Authenticator interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (*domain.Session, error)
}

// WebhookValidator validates gateway webhook signatures.
type WebhookValidator interface {
	ValidateSignature(body []byte, signature string) bool
}
