package flow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

func toPaymentForm(t *testing.T, method domain.PaymentMethod) *Machine {
	t.Helper()
	m := New()
	require.NoError(t, m.BeginLogin())
	require.NoError(t, m.LoginSucceeded(&domain.Session{Subject: "marina@example.com"}))
	require.NoError(t, m.SelectPlan("premium"))
	require.NoError(t, m.ChooseMethod(method))
	return m
}

func TestHappyPath(t *testing.T) {
	m := toPaymentForm(t, domain.MethodPix)
	snap := m.Snapshot()
	assert.Equal(t, StatePayingMethod, snap.State)
	assert.Equal(t, "premium", snap.PlanID)
	assert.Equal(t, domain.MethodPix, snap.Method)
	assert.Equal(t, "marina@example.com", snap.Session.Subject)

	require.NoError(t, m.Submit())
	outcome, err := m.Resolve(&domain.CheckoutResult{Success: true, Status: domain.StatusPending}, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAwaitingPayment, outcome)
	assert.Equal(t, StatePaymentResult, m.Snapshot().State)

	assert.ErrorIs(t, m.Retry(), ErrInvalidTransition)
	require.NoError(t, m.Close())
	assert.Equal(t, StateBrowsingPlans, m.Snapshot().State)
	assert.Empty(t, m.Snapshot().PlanID)
}

func TestInvalidTransitions(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.SelectPlan("premium"), ErrInvalidTransition)
	assert.ErrorIs(t, m.Submit(), ErrInvalidTransition)
	assert.ErrorIs(t, m.LoginSucceeded(nil), ErrInvalidTransition)
	_, err := m.Resolve(nil, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.BrowseAsGuest())
	assert.ErrorIs(t, m.SelectPlan("platinum"), ErrInvalidTransition)
	assert.ErrorIs(t, m.ChooseMethod(domain.MethodPix), ErrInvalidTransition)
	assert.Equal(t, StateBrowsingPlans, m.Snapshot().State)
}

func TestLoginFailedReturnsToAnonymous(t *testing.T) {
	m := New()
	require.NoError(t, m.BeginLogin())
	require.NoError(t, m.LoginFailed())
	assert.Equal(t, StateAnonymous, m.Snapshot().State)
}

func TestBackAndSwitchMethod(t *testing.T) {
	m := toPaymentForm(t, domain.MethodCreditCard)
	require.NoError(t, m.ChooseMethod(domain.MethodBoleto))
	assert.Equal(t, domain.MethodBoleto, m.Snapshot().Method)

	require.NoError(t, m.Back())
	assert.Equal(t, StateCheckingOut, m.Snapshot().State)
	require.NoError(t, m.Back())
	assert.Equal(t, StateBrowsingPlans, m.Snapshot().State)
	assert.ErrorIs(t, m.Back(), ErrInvalidTransition)
}

func TestSubmitGuard(t *testing.T) {
	m := toPaymentForm(t, domain.MethodCreditCard)
	require.NoError(t, m.Submit())

	assert.ErrorIs(t, m.Submit(), ErrSubmitInProgress)
	assert.ErrorIs(t, m.ChooseMethod(domain.MethodPix), ErrInvalidTransition)
	assert.ErrorIs(t, m.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, m.Logout(), ErrSubmitInProgress)
	assert.True(t, m.Snapshot().Submitting)
}

func TestSubmitGuardConcurrent(t *testing.T) {
	m := toPaymentForm(t, domain.MethodCreditCard)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Submit() == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}

func TestRetryAfterNetworkError(t *testing.T) {
	m := toPaymentForm(t, domain.MethodCreditCard)
	require.NoError(t, m.Submit())
	outcome, err := m.Resolve(nil, domain.KindNetwork)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryable, outcome)

	require.NoError(t, m.Retry())
	snap := m.Snapshot()
	assert.Equal(t, StatePayingMethod, snap.State)
	assert.Equal(t, domain.MethodCreditCard, snap.Method)
	assert.False(t, snap.Submitting)
}

func TestLogoutResets(t *testing.T) {
	m := toPaymentForm(t, domain.MethodPix)
	require.NoError(t, m.Logout())
	snap := m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.Session)
	assert.Empty(t, snap.PlanID)
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		name    string
		result  *domain.CheckoutResult
		errKind string
		want    Outcome
	}{
		{"paid", &domain.CheckoutResult{Success: true, Status: domain.StatusPaid}, "", OutcomeApproved},
		{"pending", &domain.CheckoutResult{Success: true, Status: domain.StatusPending}, "", OutcomeAwaitingPayment},
		{"processing", &domain.CheckoutResult{Success: true, Status: domain.StatusProcessing}, "", OutcomeAwaitingPayment},
		{"refused", &domain.CheckoutResult{Success: true, Status: domain.StatusRefused}, "", OutcomeDeclined},
		{"declined kind", nil, domain.KindDeclined, OutcomeDeclined},
		{"declined body", &domain.CheckoutResult{Error: domain.KindDeclined}, "", OutcomeDeclined},
		{"network", nil, domain.KindNetwork, OutcomeRetryable},
		{"unavailable", nil, domain.KindGatewayUnavailable, OutcomeFailed},
		{"validation", &domain.CheckoutResult{Error: domain.KindValidation}, "", OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeFor(tt.result, tt.errKind))
		})
	}
}
