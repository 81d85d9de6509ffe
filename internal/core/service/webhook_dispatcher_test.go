package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/adapters/store"
	"github.com/petbox/petbox-payments/internal/core/domain"
)

var clock = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func newDispatcher(rec *recorder) (*WebhookDispatcher, *store.Memory) {
	st := store.NewMemory()
	d := NewWebhookDispatcher(st, st, rec, rec, rec, zap.NewNop())
	d.Now = func() time.Time { return clock }
	n := 0
	d.NewID = func() string {
		n++
		return fmt.Sprintf("effect-%d", n)
	}
	return d, st
}

func event(name, id string, method domain.PaymentMethod) domain.WebhookEvent {
	return domain.WebhookEvent{
		Event: name,
		Transaction: domain.GatewayTransaction{
			ID:            id,
			PaymentMethod: method,
			Customer:      domain.Customer{Email: "marina@example.com"},
			Metadata:      map[string]any{"planId": "premium"},
			PixCode:       "pix-code",
			BoletoURL:     "https://boleto/1",
			RefuseReason:  "insufficient_funds",
		},
		Timestamp: "2026-10-16T12:00:00Z",
	}
}

func TestDispatch_Handlers(t *testing.T) {
	tests := []struct {
		name   string
		event  domain.WebhookEvent
		expect []call
	}{
		{
			name:   "paid activates entitlement",
			event:  event(domain.EventTransactionPaid, "tx_1", domain.MethodCreditCard),
			expect: []call{{"ActivateEntitlement", []string{"marina@example.com", "premium", "tx_1"}}},
		},
		{
			name:   "refused notifies customer",
			event:  event(domain.EventTransactionRefused, "tx_1", domain.MethodCreditCard),
			expect: []call{{"NotifyPaymentFailed", []string{"marina@example.com", "insufficient_funds"}}},
		},
		{
			name:   "pending pix sends code",
			event:  event(domain.EventTransactionPending, "tx_1", domain.MethodPix),
			expect: []call{{"SendPixInstructions", []string{"marina@example.com", "pix-code"}}},
		},
		{
			name:   "pending boleto sends url",
			event:  event(domain.EventTransactionPending, "tx_1", domain.MethodBoleto),
			expect: []call{{"SendBoletoInstructions", []string{"marina@example.com", "https://boleto/1"}}},
		},
		{
			name:   "pending card has no effect",
			event:  event(domain.EventTransactionPending, "tx_1", domain.MethodCreditCard),
			expect: nil,
		},
		{
			name:  "chargeback from unseen suspends and alerts",
			event: event(domain.EventTransactionChargedback, "tx_1", domain.MethodCreditCard),
			expect: []call{
				{"SuspendEntitlement", []string{"marina@example.com", "chargeback"}},
				{"AlertOperations", []string{"tx_1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			d, _ := newDispatcher(rec)

			outcome, err := d.Dispatch(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, OutcomeApplied, outcome)
			assert.Equal(t, tt.expect, rec.Calls())
		})
	}
}

func TestDispatch_UnknownEventAcknowledged(t *testing.T) {
	rec := newRecorder()
	d, st := newDispatcher(rec)

	outcome, err := d.Dispatch(context.Background(), event("transaction.refunded", "tx_1", domain.MethodPix))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownEvent, outcome)
	assert.Empty(t, rec.Calls())

	status, _ := st.Status(context.Background(), "tx_1")
	assert.Empty(t, status)
}

func TestDispatch_EventsWithoutIDDoNotCollide(t *testing.T) {
	rec := newRecorder()
	d, st := newDispatcher(rec)
	ctx := context.Background()

	first := event(domain.EventTransactionPaid, "", domain.MethodPix)
	second := event(domain.EventTransactionPaid, "", domain.MethodPix)
	second.Transaction.Customer.Email = "joao@example.com"

	for _, ev := range []domain.WebhookEvent{first, second} {
		outcome, err := d.Dispatch(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, OutcomeIgnored, outcome)
	}
	assert.Empty(t, rec.Calls())

	status, _ := st.Status(ctx, "")
	assert.Empty(t, status)
}

func TestDispatch_DuplicatePaidActivatesOnce(t *testing.T) {
	rec := newRecorder()
	d, _ := newDispatcher(rec)
	ev := event(domain.EventTransactionPaid, "tx_1", domain.MethodCreditCard)

	_, err := d.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	outcome, err := d.Dispatch(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Len(t, rec.Calls(), 1)
}

func TestDispatch_PendingAfterPaidDoesNotRegress(t *testing.T) {
	rec := newRecorder()
	d, st := newDispatcher(rec)
	ctx := context.Background()

	_, _ = d.Dispatch(ctx, event(domain.EventTransactionPaid, "tx_1", domain.MethodPix))
	outcome, err := d.Dispatch(ctx, event(domain.EventTransactionPending, "tx_1", domain.MethodPix))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	status, _ := st.Status(ctx, "tx_1")
	assert.Equal(t, domain.StatusPaid, status)
	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, "ActivateEntitlement", rec.Calls()[0].Method)
}

func TestDispatch_ChargebackAfterRefusedIgnored(t *testing.T) {
	rec := newRecorder()
	d, _ := newDispatcher(rec)
	ctx := context.Background()

	_, _ = d.Dispatch(ctx, event(domain.EventTransactionRefused, "tx_1", domain.MethodCreditCard))
	outcome, _ := d.Dispatch(ctx, event(domain.EventTransactionChargedback, "tx_1", domain.MethodCreditCard))
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Len(t, rec.Calls(), 1)
}

func TestDispatch_ChargebackEffectsIsolated(t *testing.T) {
	rec := newRecorder()
	rec.fail["SuspendEntitlement"] = errors.New("subscriptions down")
	d, st := newDispatcher(rec)

	outcome, err := d.Dispatch(context.Background(), event(domain.EventTransactionChargedback, "tx_1", domain.MethodCreditCard))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "AlertOperations", calls[1].Method)

	pending, err := st.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, EffectSuspendEntitlement, pending[0].Kind)
	assert.Equal(t, "tx_1", pending[0].TransactionID)
	assert.Equal(t, "subscriptions down", pending[0].LastError)
	assert.Equal(t, clock.Add(d.BaseBackoff), pending[0].NextAttemptAt)
}

func TestDispatch_PanickingCollaboratorIsQueued(t *testing.T) {
	d, st := newDispatcher(newRecorder())
	d.entitlements = panicEntitlements{}

	outcome, err := d.Dispatch(context.Background(), event(domain.EventTransactionPaid, "tx_1", domain.MethodCreditCard))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	pending, _ := st.Pending(context.Background())
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].LastError, "panic")
}

type panicEntitlements struct{}

func (panicEntitlements) ActivateEntitlement(context.Context, string, string, string) error {
	panic("nil client")
}

func (panicEntitlements) SuspendEntitlement(context.Context, string, string) error { return nil }

func TestRetryDue(t *testing.T) {
	rec := newRecorder()
	rec.fail["ActivateEntitlement"] = errors.New("timeout")
	d, st := newDispatcher(rec)
	d.MaxAttempts = 2
	ctx := context.Background()

	_, err := d.Dispatch(ctx, event(domain.EventTransactionPaid, "tx_1", domain.MethodCreditCard))
	require.NoError(t, err)

	// Not due yet.
	n, err := d.RetryDue(ctx, clock)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, rec.Calls(), 1)

	// First retry fails and is rescheduled with backoff.
	n, err = d.RetryDue(ctx, clock.Add(d.BaseBackoff))
	require.NoError(t, err)
	assert.Zero(t, n)
	pending, _ := st.Pending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, clock.Add(2*d.BaseBackoff), pending[0].NextAttemptAt)

	// Collaborator recovers.
	delete(rec.fail, "ActivateEntitlement")
	n, err = d.RetryDue(ctx, clock.Add(2*d.BaseBackoff))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pending, _ = st.Pending(ctx)
	assert.Empty(t, pending)

	calls := rec.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"marina@example.com", "premium", "tx_1"}, calls[2].Args)
}

func TestRetryDue_DropsEffectsOvertakenByChargeback(t *testing.T) {
	rec := newRecorder()
	rec.fail["ActivateEntitlement"] = errors.New("timeout")
	d, st := newDispatcher(rec)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, event(domain.EventTransactionPaid, "tx_1", domain.MethodCreditCard))
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, event(domain.EventTransactionChargedback, "tx_1", domain.MethodCreditCard))
	require.NoError(t, err)

	delete(rec.fail, "ActivateEntitlement")
	n, err := d.RetryDue(ctx, clock.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	var methods []string
	for _, c := range rec.Calls() {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{"ActivateEntitlement", "SuspendEntitlement", "AlertOperations"}, methods)

	pending, _ := st.Pending(ctx)
	assert.Empty(t, pending)
	status, _ := st.Status(ctx, "tx_1")
	assert.Equal(t, domain.StatusChargedback, status)
}

func TestRetryDue_GivesUpAfterMaxAttempts(t *testing.T) {
	rec := newRecorder()
	rec.fail["NotifyPaymentFailed"] = errors.New("smtp down")
	d, st := newDispatcher(rec)
	d.MaxAttempts = 1
	ctx := context.Background()

	_, _ = d.Dispatch(ctx, event(domain.EventTransactionRefused, "tx_1", domain.MethodCreditCard))
	_, err := d.RetryDue(ctx, clock.Add(time.Hour))
	require.NoError(t, err)

	pending, _ := st.Pending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	due, _ := st.Due(ctx, clock.AddDate(1, 0, 0), 10)
	assert.Empty(t, due, "exhausted rows are parked")
}

func TestBackoff(t *testing.T) {
	d, _ := newDispatcher(newRecorder())
	d.BaseBackoff = time.Second
	d.MaxBackoff = 5 * time.Second

	assert.Equal(t, time.Second, d.backoff(1))
	assert.Equal(t, 2*time.Second, d.backoff(2))
	assert.Equal(t, 4*time.Second, d.backoff(3))
	assert.Equal(t, 5*time.Second, d.backoff(4))
	assert.Equal(t, 5*time.Second, d.backoff(10))
}

func TestRunRetriesStopsOnCancel(t *testing.T) {
	d, _ := newDispatcher(newRecorder())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.RunRetries(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunRetries did not stop")
	}
}
