// PetBox Payments Service
//
// This is the main entry point for the checkout and webhook service.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/config"
	"github.com/petbox/petbox-payments/internal/adapters/furiapay"
	"github.com/petbox/petbox-payments/internal/adapters/identity"
	"github.com/petbox/petbox-payments/internal/adapters/mercadopago"
	"github.com/petbox/petbox-payments/internal/adapters/notify"
	"github.com/petbox/petbox-payments/internal/adapters/store"
	"github.com/petbox/petbox-payments/internal/adapters/subscriptions"
	"github.com/petbox/petbox-payments/internal/core/checkout"
	"github.com/petbox/petbox-payments/internal/core/ports"
	"github.com/petbox/petbox-payments/internal/core/service"
	"github.com/petbox/petbox-payments/internal/handlers"
	"github.com/petbox/petbox-payments/internal/logging"
)

type backend interface {
	ports.StatusStore
	ports.Outbox
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting petbox payments",
		zap.String("port", cfg.Server.Port),
		zap.String("provider", cfg.Server.Provider),
		zap.String("environment", cfg.FuriaPay.Environment),
		zap.String("api_base_url", cfg.FuriaPay.APIBaseURL()))

	// Infrastructure Layer
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	st, closeStore, err := newStore(cfg.Webhooks.StoreDSN)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier := notify.NewLogNotifier(logger)
	var entitlements ports.EntitlementService = notifier
	if cfg.Webhooks.SubscriptionsURL != "" {
		entitlements = subscriptions.NewClient(cfg.Webhooks.SubscriptionsURL, cfg.Webhooks.SubscriptionsAPIKey)
	} else {
		logger.Warn("SUBSCRIPTIONS_API_URL not set, entitlement changes are only logged")
	}

	sessions, err := identity.NewSessionIssuer(cfg.Security.SessionSecret)
	if err != nil {
		return err
	}
	if cfg.Security.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, operator sessions will not survive a restart")
	}
	auth := identity.NewEnvAuthenticator(cfg.Security.AdminEmail, cfg.Security.AdminPasswordHash,
		time.Duration(cfg.Security.SessionTTLMinutes)*time.Minute)

	// Service Layer
	payments := service.NewPaymentService(gateway, checkout.NewBuilder(cfg.FuriaPay.WebhookURL), st, logger)
	dispatcher := service.NewWebhookDispatcher(st, st, entitlements, notifier, notifier, logger)
	retryInterval := time.Duration(cfg.Webhooks.RetryIntervalSeconds) * time.Second
	if retryInterval > 0 {
		dispatcher.BaseBackoff = retryInterval
	} else {
		retryInterval = 30 * time.Second
	}
	if cfg.Webhooks.MaxAttempts > 0 {
		dispatcher.MaxAttempts = cfg.Webhooks.MaxAttempts
	}

	// API Layer
	var validator ports.WebhookValidator
	if cfg.FuriaPay.WebhookSecret != "" {
		validator = furiapay.NewWebhookValidator(cfg.FuriaPay.WebhookSecret)
	} else {
		logger.Warn("FURIA_WEBHOOK_SECRET not set, webhook signatures are not checked")
	}

	h := handlers.Handlers{
		Payments: handlers.NewPaymentHandler(payments, logger),
		Webhooks: handlers.NewWebhookHandler(dispatcher, validator, logger),
		Admin:    handlers.NewAdminHandler(auth, sessions, payments, dispatcher, logger),
		Sessions: sessions,
		Limiter:  handlers.NewIPRateLimiter(cfg.Server.CheckoutRatePerMinute, cfg.Server.CheckoutRateBurst),
	}
	if cfg.Server.Provider == "mercadopago" {
		h.MercadoPago = handlers.NewMercadoPagoWebhookHandler(gateway, dispatcher,
			mercadopago.NewWebhookValidator(cfg.MercadoPago.WebhookSecret), logger)
	}

	router, err := handlers.SetupRouter(h, cfg.Server.GinMode, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go dispatcher.RunRetries(ctx, retryInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGateway(cfg *config.Config, logger *zap.Logger) (ports.PaymentGateway, error) {
	switch cfg.Server.Provider {
	case "", "furiapay":
		if !cfg.FuriaPay.IsConfigured() {
			logger.Warn("FuriaPay credentials missing, checkout will answer payment_not_configured")
		}
		for _, w := range cfg.FuriaPay.KeyWarnings() {
			logger.Warn(w)
		}
		return furiapay.NewClient(cfg.FuriaPay, logger.Named("furiapay")), nil
	case "mercadopago":
		if cfg.MercadoPago.AccessToken == "" {
			logger.Warn("MP_ACCESS_TOKEN missing, checkout will answer payment_not_configured")
		}
		return mercadopago.NewAdapter(cfg.MercadoPago.AccessToken, logger), nil
	}
	return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.Server.Provider)
}

func newStore(dsn string) (backend, func(), error) {
	if dsn == "" {
		return store.NewMemory(), func() {}, nil
	}
	db, err := store.OpenSQLite(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return db, func() { db.Close() }, nil
}
