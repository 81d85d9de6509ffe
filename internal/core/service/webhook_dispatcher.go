package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/checkout"
	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/core/ports"
)

// Side effect kinds as stored in the outbox.
const (
	EffectActivateEntitlement    = "activate_entitlement"
	EffectNotifyPaymentFailed    = "notify_payment_failed"
	EffectSendPixInstructions    = "send_pix_instructions"
	EffectSendBoletoInstructions = "send_boleto_instructions"
	EffectSuspendEntitlement     = "suspend_entitlement"
	EffectAlertOperations        = "alert_operations"
)

// effectStatus is the status each side effect's event asserted. A queued
// effect only still applies while the transaction sits at that status.
var effectStatus = map[string]domain.TransactionStatus{
	EffectActivateEntitlement:    domain.StatusPaid,
	EffectNotifyPaymentFailed:    domain.StatusRefused,
	EffectSendPixInstructions:    domain.StatusPending,
	EffectSendBoletoInstructions: domain.StatusPending,
	EffectSuspendEntitlement:     domain.StatusChargedback,
	EffectAlertOperations:        domain.StatusChargedback,
}

// ChargebackReason is passed to SuspendEntitlement on chargebacks.
const ChargebackReason = "chargeback"

// Outcome describes what Dispatch did with an event.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeUnknownEvent Outcome = "unknown_event"
	OutcomeIgnored      Outcome = "ignored" // duplicate or regression
)

// WebhookDispatcher applies gateway webhook events. Each event first has to
// advance the transaction on the status lattice; only then do its side
// effects run. Failed side effects go to the outbox.
type WebhookDispatcher struct {
	store        ports.StatusStore
	outbox       ports.Outbox
	entitlements ports.EntitlementService
	notifier     ports.CustomerNotifier
	alerter      ports.OperationsAlerter
	logger       *zap.Logger

	// MaxAttempts bounds outbox retries; rows past it are left for operators.
	MaxAttempts int
	// BaseBackoff is the delay before the first retry, doubled per attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration

	Now   func() time.Time
	NewID func() string
}

// NewWebhookDispatcher creates a dispatcher with default retry settings.
func NewWebhookDispatcher(
	store ports.StatusStore,
	outbox ports.Outbox,
	entitlements ports.EntitlementService,
	notifier ports.CustomerNotifier,
	alerter ports.OperationsAlerter,
	logger *zap.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		store:        store,
		outbox:       outbox,
		entitlements: entitlements,
		notifier:     notifier,
		alerter:      alerter,
		logger:       logger.Named("webhooks"),
		MaxAttempts:  8,
		BaseBackoff:  30 * time.Second,
		MaxBackoff:   6 * time.Hour,
		Now:          time.Now,
		NewID:        func() string { return uuid.New().String() },
	}
}

// Dispatch applies event. Side effect failures never surface here; the only
// error is a status store failure, which the caller should report so the
// gateway redelivers.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event domain.WebhookEvent) (Outcome, error) {
	tx := event.Transaction
	log := d.logger.With(zap.String("event", event.Event), zap.String("transaction_id", tx.ID))

	status, ok := domain.StatusForEvent(event.Event)
	if !ok {
		log.Info("unknown webhook event acknowledged")
		return OutcomeUnknownEvent, nil
	}

	if tx.ID == "" {
		log.Warn("webhook event without transaction id ignored")
		return OutcomeIgnored, nil
	}

	applied, err := d.store.Advance(ctx, tx.ID, status)
	if err != nil {
		log.Error("status store advance failed", zap.Error(err))
		return "", fmt.Errorf("advance %s to %s: %w", tx.ID, status, err)
	}
	if !applied {
		log.Info("duplicate or out-of-order event ignored", zap.String("status", string(status)))
		return OutcomeIgnored, nil
	}

	for _, kind := range effectsFor(event.Event, tx) {
		if err := d.run(ctx, kind, tx); err != nil {
			log.Warn("side effect failed, queued for retry", zap.String("effect", kind), zap.Error(err))
			d.enqueue(ctx, kind, tx, err)
		}
	}
	log.Info("webhook event applied", zap.String("status", string(status)))
	return OutcomeApplied, nil
}

// effectsFor lists the side effects an event triggers, in order.
func effectsFor(event string, tx domain.GatewayTransaction) []string {
	switch event {
	case domain.EventTransactionPaid:
		return []string{EffectActivateEntitlement}
	case domain.EventTransactionRefused:
		return []string{EffectNotifyPaymentFailed}
	case domain.EventTransactionPending:
		switch tx.PaymentMethod {
		case domain.MethodPix:
			return []string{EffectSendPixInstructions}
		case domain.MethodBoleto:
			return []string{EffectSendBoletoInstructions}
		}
	case domain.EventTransactionChargedback:
		return []string{EffectSuspendEntitlement, EffectAlertOperations}
	}
	return nil
}

func (d *WebhookDispatcher) run(ctx context.Context, kind string, tx domain.GatewayTransaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", kind, r)
		}
	}()

	email := tx.Customer.Email
	switch kind {
	case EffectActivateEntitlement:
		return d.entitlements.ActivateEntitlement(ctx, email, tx.MetadataString(checkout.MetaPlanID), tx.ID)
	case EffectNotifyPaymentFailed:
		return d.notifier.NotifyPaymentFailed(ctx, email, tx.RefuseReason)
	case EffectSendPixInstructions:
		code := tx.PixCode
		if code == "" {
			code = tx.PixQRCode
		}
		return d.notifier.SendPixInstructions(ctx, email, code)
	case EffectSendBoletoInstructions:
		url := tx.BoletoURL
		if url == "" {
			url = tx.SecureURL
		}
		return d.notifier.SendBoletoInstructions(ctx, email, url)
	case EffectSuspendEntitlement:
		return d.entitlements.SuspendEntitlement(ctx, email, ChargebackReason)
	case EffectAlertOperations:
		return d.alerter.AlertOperations(ctx, tx)
	}
	return fmt.Errorf("unknown side effect %q", kind)
}

func (d *WebhookDispatcher) enqueue(ctx context.Context, kind string, tx domain.GatewayTransaction, cause error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		d.logger.Error("encode side effect payload", zap.String("effect", kind), zap.Error(err))
		return
	}
	now := d.Now()
	effect := domain.SideEffect{
		ID:            d.NewID(),
		Kind:          kind,
		TransactionID: tx.ID,
		Payload:       payload,
		LastError:     cause.Error(),
		NextAttemptAt: now.Add(d.BaseBackoff),
		CreatedAt:     now,
	}
	if err := d.outbox.Enqueue(ctx, effect); err != nil {
		d.logger.Error("outbox enqueue failed, side effect lost",
			zap.String("effect", kind), zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}

// RetryDue runs every outbox row due at now once. Rows whose transaction has
// since moved past the status their event asserted are dropped without
// running. Successful rows are removed; failed rows are rescheduled with
// exponential backoff until MaxAttempts is reached. It returns the number of
// rows that succeeded.
func (d *WebhookDispatcher) RetryDue(ctx context.Context, now time.Time) (int, error) {
	due, err := d.outbox.Due(ctx, now, 50)
	if err != nil {
		return 0, fmt.Errorf("load due side effects: %w", err)
	}

	done := 0
	for _, e := range due {
		if e.Attempts >= d.MaxAttempts {
			continue
		}
		log := d.logger.With(zap.String("effect", e.Kind), zap.String("transaction_id", e.TransactionID),
			zap.Int("attempts", e.Attempts))

		current, err := d.store.Status(ctx, e.TransactionID)
		if err != nil {
			log.Warn("status lookup failed, retry deferred", zap.Error(err))
			continue
		}
		if asserted, ok := effectStatus[e.Kind]; ok && current != "" && current != asserted {
			if err := d.outbox.Complete(ctx, e.ID); err != nil {
				log.Error("outbox complete failed", zap.Error(err))
				continue
			}
			log.Info("side effect superseded, dropped",
				zap.String("asserted", string(asserted)), zap.String("current", string(current)))
			continue
		}

		var tx domain.GatewayTransaction
		runErr := json.Unmarshal(e.Payload, &tx)
		if runErr == nil {
			runErr = d.run(ctx, e.Kind, tx)
		}
		if runErr == nil {
			if err := d.outbox.Complete(ctx, e.ID); err != nil {
				log.Error("outbox complete failed", zap.Error(err))
				continue
			}
			log.Info("side effect retried successfully")
			done++
			continue
		}

		attempts := e.Attempts + 1
		next := now.Add(d.backoff(attempts))
		if attempts >= d.MaxAttempts {
			// Parked rows stay visible in Pending but are never due again.
			next = now.AddDate(100, 0, 0)
			log.Error("side effect gave up", zap.Error(runErr))
		} else {
			log.Warn("side effect retry failed", zap.Error(runErr))
		}
		if err := d.outbox.Reschedule(ctx, e.ID, runErr.Error(), next); err != nil {
			log.Error("outbox reschedule failed", zap.Error(err))
		}
	}
	return done, nil
}

func (d *WebhookDispatcher) backoff(attempts int) time.Duration {
	delay := d.BaseBackoff
	for i := 1; i < attempts && delay < d.MaxBackoff; i++ {
		delay *= 2
	}
	if delay > d.MaxBackoff {
		delay = d.MaxBackoff
	}
	return delay
}

// RunRetries drains the outbox every interval until ctx is cancelled.
func (d *WebhookDispatcher) RunRetries(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.RetryDue(ctx, d.Now()); err != nil {
				d.logger.Error("outbox retry pass failed", zap.Error(err))
			}
		}
	}
}

// Pending lists side effects still waiting in the outbox.
func (d *WebhookDispatcher) Pending(ctx context.Context) ([]domain.SideEffect, error) {
	return d.outbox.Pending(ctx)
}
