// Package config handles loading and managing application configuration.
package config

import (
	"errors"
	"io/fs"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Payment gateway configuration
	FuriaPay FuriaPayConfig

	// Alternative provider (Mercado Pago) configuration
	MercadoPago MercadoPagoConfig

	// Webhook side effects and their collaborators
	Webhooks WebhookConfig

	// Security settings
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string `env:"PORT,default=8080"`
	GinMode  string `env:"GIN_MODE,default=debug"` // "debug", "release", or "test"
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Provider selects the gateway adapter: "furiapay" or "mercadopago".
	Provider string `env:"PAYMENT_PROVIDER,default=furiapay"`

	CheckoutRatePerMinute int `env:"CHECKOUT_RATE_PER_MINUTE,default=30"`
	CheckoutRateBurst     int `env:"CHECKOUT_RATE_BURST,default=5"`
}

// MercadoPagoConfig holds credentials for the Mercado Pago adapter.
type MercadoPagoConfig struct {
	AccessToken   string `env:"MP_ACCESS_TOKEN"`
	WebhookSecret string `env:"MP_WEBHOOK_SECRET"`
}

// WebhookConfig holds the webhook dispatcher settings.
type WebhookConfig struct {
	// StoreDSN is a SQLite DSN for the status store and outbox.
	// Empty keeps them in memory.
	StoreDSN string `env:"STORE_DSN"`

	SubscriptionsURL    string `env:"SUBSCRIPTIONS_API_URL"`
	SubscriptionsAPIKey string `env:"SUBSCRIPTIONS_API_KEY"`

	RetryIntervalSeconds int `env:"OUTBOX_RETRY_INTERVAL_SECONDS,default=30"`
	MaxAttempts          int `env:"OUTBOX_MAX_ATTEMPTS,default=8"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	SessionSecret     string `env:"SESSION_SECRET"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES,default=60"`
	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"` // bcrypt
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnviron()
}

// FromEnviron builds a Config from the current process environment only.
func FromEnviron() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, err
	}
	cfg.FuriaPay.applyFallbacks()
	return &cfg, nil
}
