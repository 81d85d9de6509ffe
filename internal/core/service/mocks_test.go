package service

import (
	"context"
	"sync"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

type mockGateway struct {
	CreateFunc func(ctx context.Context, payload domain.TransactionPayload) (*domain.GatewayTransaction, error)
	GetFunc    func(ctx context.Context, id string) (*domain.GatewayTransaction, error)
	creates    int
}

func (m *mockGateway) CreateTransaction(ctx context.Context, payload domain.TransactionPayload) (*domain.GatewayTransaction, error) {
	m.creates++
	return m.CreateFunc(ctx, payload)
}

func (m *mockGateway) GetTransaction(ctx context.Context, id string) (*domain.GatewayTransaction, error) {
	return m.GetFunc(ctx, id)
}

// call records one collaborator invocation.
type call struct {
	Method string
	Args   []string
}

// recorder implements every collaborator port and records calls. A non-nil
// entry in fail makes that method return the error.
type recorder struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]error{}}
}

func (r *recorder) record(method string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{Method: method, Args: args})
	return r.fail[method]
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) ActivateEntitlement(_ context.Context, email, planID, txID string) error {
	return r.record("ActivateEntitlement", email, planID, txID)
}

func (r *recorder) SuspendEntitlement(_ context.Context, email, reason string) error {
	return r.record("SuspendEntitlement", email, reason)
}

func (r *recorder) NotifyPaymentFailed(_ context.Context, email, reason string) error {
	return r.record("NotifyPaymentFailed", email, reason)
}

func (r *recorder) SendPixInstructions(_ context.Context, email, code string) error {
	return r.record("SendPixInstructions", email, code)
}

func (r *recorder) SendBoletoInstructions(_ context.Context, email, url string) error {
	return r.record("SendBoletoInstructions", email, url)
}

func (r *recorder) AlertOperations(_ context.Context, tx domain.GatewayTransaction) error {
	return r.record("AlertOperations", tx.ID)
}
