// Package flow models the storefront checkout as an explicit state machine:
// login, plan selection, payment form and result.
package flow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// State names a checkout step.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateBrowsingPlans  State = "browsingPlans"
	StateCheckingOut    State = "checkingOut"
	StatePayingMethod   State = "payingMethod"
	StatePaymentResult  State = "paymentResult"
)

// Outcome is what the customer is told after a submit.
type Outcome string

const (
	OutcomeApproved        Outcome = "approved"
	OutcomeAwaitingPayment Outcome = "awaiting_payment"
	OutcomeDeclined        Outcome = "declined"
	OutcomeRetryable       Outcome = "retryable"
	OutcomeFailed          Outcome = "failed"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("invalid checkout transition")

	// ErrSubmitInProgress is returned by Submit while a previous submit has
	// not been resolved.
	ErrSubmitInProgress = errors.New("payment submit already in progress")
)

// Snapshot is a read-only view of the machine.
type Snapshot struct {
	State      State
	PlanID     string
	Method     domain.PaymentMethod
	Outcome    Outcome
	Submitting bool
	Session    *domain.Session
	Result     *domain.CheckoutResult
}

// Machine is safe for concurrent use.
type Machine struct {
	mu         sync.Mutex
	state      State
	planID     string
	method     domain.PaymentMethod
	outcome    Outcome
	submitting bool
	session    *domain.Session
	result     *domain.CheckoutResult
}

// New returns a machine in the anonymous state.
func New() *Machine {
	return &Machine{state: StateAnonymous}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:      m.state,
		PlanID:     m.planID,
		Method:     m.method,
		Outcome:    m.outcome,
		Submitting: m.submitting,
		Session:    m.session,
		Result:     m.result,
	}
}

func invalid(action string, from State) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
}

// BeginLogin opens the login step.
func (m *Machine) BeginLogin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAnonymous {
		return invalid("begin login", m.state)
	}
	m.state = StateAuthenticating
	return nil
}

// LoginSucceeded stores the session and shows the plans.
func (m *Machine) LoginSucceeded(s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticating {
		return invalid("login succeeded", m.state)
	}
	m.session = s
	m.state = StateBrowsingPlans
	return nil
}

// LoginFailed returns to the anonymous state.
func (m *Machine) LoginFailed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticating {
		return invalid("login failed", m.state)
	}
	m.state = StateAnonymous
	return nil
}

// BrowseAsGuest skips login.
func (m *Machine) BrowseAsGuest() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAnonymous {
		return invalid("browse as guest", m.state)
	}
	m.state = StateBrowsingPlans
	return nil
}

// SelectPlan starts checkout for a catalog plan.
func (m *Machine) SelectPlan(planID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateBrowsingPlans {
		return invalid("select plan", m.state)
	}
	if _, ok := domain.FindPlan(planID); !ok {
		return fmt.Errorf("%w: unknown plan %q", ErrInvalidTransition, planID)
	}
	m.planID = planID
	m.state = StateCheckingOut
	return nil
}

// ChooseMethod opens the payment form for method. It may also switch
// methods on an open form as long as nothing is being submitted.
func (m *Machine) ChooseMethod(method domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidTransition, method)
	}
	switch {
	case m.state == StateCheckingOut:
	case m.state == StatePayingMethod && !m.submitting:
	default:
		return invalid("choose method", m.state)
	}
	m.method = method
	m.state = StatePayingMethod
	return nil
}

// Back steps back from the payment form or the plan review.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.state == StatePayingMethod && !m.submitting:
		m.method = ""
		m.state = StateCheckingOut
	case m.state == StateCheckingOut:
		m.planID = ""
		m.state = StateBrowsingPlans
	default:
		return invalid("back", m.state)
	}
	return nil
}

// Submit marks a payment as outstanding. Exactly one submit may be in
// flight; callers must Resolve before submitting again.
func (m *Machine) Submit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePayingMethod {
		return invalid("submit", m.state)
	}
	if m.submitting {
		return ErrSubmitInProgress
	}
	m.submitting = true
	return nil
}

// Resolve records the checkout response for the outstanding submit.
// errKind is the normalized error kind when the call failed, else "".
func (m *Machine) Resolve(result *domain.CheckoutResult, errKind string) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePayingMethod || !m.submitting {
		return "", invalid("resolve", m.state)
	}
	m.submitting = false
	m.result = result
	m.outcome = OutcomeFor(result, errKind)
	m.state = StatePaymentResult
	return m.outcome, nil
}

// Retry reopens the payment form after a non-final outcome.
func (m *Machine) Retry() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePaymentResult || m.outcome == OutcomeApproved || m.outcome == OutcomeAwaitingPayment {
		return invalid("retry", m.state)
	}
	m.outcome = ""
	m.result = nil
	m.state = StatePayingMethod
	return nil
}

// Close dismisses the result and returns to the plans.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePaymentResult {
		return invalid("close", m.state)
	}
	m.planID, m.method, m.outcome, m.result = "", "", "", nil
	m.state = StateBrowsingPlans
	return nil
}

// Logout resets the machine. It is refused while a submit is outstanding.
func (m *Machine) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting {
		return ErrSubmitInProgress
	}
	m.planID, m.method, m.outcome, m.result, m.session = "", "", "", nil, nil
	m.state = StateAnonymous
	return nil
}

// OutcomeFor maps a checkout response to the outcome shown to the customer.
func OutcomeFor(result *domain.CheckoutResult, errKind string) Outcome {
	if errKind == "" && result != nil && result.Success {
		switch result.Status {
		case domain.StatusPaid:
			return OutcomeApproved
		case domain.StatusPending, domain.StatusProcessing:
			return OutcomeAwaitingPayment
		case domain.StatusRefused:
			return OutcomeDeclined
		}
		return OutcomeFailed
	}
	if errKind == "" && result != nil {
		errKind = result.Error
	}
	switch errKind {
	case domain.KindDeclined:
		return OutcomeDeclined
	case domain.KindNetwork:
		return OutcomeRetryable
	}
	return OutcomeFailed
}
