package config

import (
	"encoding/base64"
	"os"
	"strings"
	"time"
)

// minKeyLength is the shortest credential considered plausible.
const minKeyLength = 10

// Gateway environments.
const (
	EnvProduction = "production"
	EnvTest       = "test"
	EnvSandbox    = "sandbox"
)

// apiBaseURLs maps each environment to its gateway endpoint.
var apiBaseURLs = map[string]string{
	EnvProduction: "https://api.furiapaybr.com/v1",
	EnvTest:       "https://sandbox.furiapaybr.com/v1",
	EnvSandbox:    "https://sandbox.furiapaybr.com/v1",
}

// FuriaPayConfig holds FuriaPay credentials and endpoint settings.
type FuriaPayConfig struct {
	PublicKey   string `env:"FURIA_PUBLIC_KEY"`
	SecretKey   string `env:"FURIA_SECRET_KEY"`
	Environment string `env:"FURIA_ENVIRONMENT,default=production"`

	// APIURL overrides the environment table.
	APIURL string `env:"FURIA_API_URL"`

	// WebhookURL is the postback URL sent with each transaction.
	WebhookURL    string `env:"FURIA_WEBHOOK_URL"`
	WebhookSecret string `env:"FURIA_WEBHOOK_SECRET"`

	TimeoutSeconds int `env:"FURIA_TIMEOUT_SECONDS,default=30"`
}

// applyFallbacks honors the public-key variable name used by the storefront build.
func (c *FuriaPayConfig) applyFallbacks() {
	if c.PublicKey == "" {
		c.PublicKey = os.Getenv("NEXT_PUBLIC_FURIA_PUBLIC_KEY")
	}
	if c.Environment == "" {
		c.Environment = EnvProduction
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// IsConfigured reports whether both keys are present and plausibly long.
// No outbound call may be attempted when this is false.
func (c FuriaPayConfig) IsConfigured() bool {
	return len(c.PublicKey) > minKeyLength && len(c.SecretKey) > minKeyLength
}

// AuthHeader returns the Authorization header value: HTTP Basic over
// "publicKey:secretKey".
func (c FuriaPayConfig) AuthHeader() string {
	creds := c.PublicKey + ":" + c.SecretKey
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// APIBaseURL resolves the gateway endpoint for the configured environment.
// Unknown environments resolve to production.
func (c FuriaPayConfig) APIBaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	if u, ok := apiBaseURLs[strings.ToLower(c.Environment)]; ok {
		return u
	}
	return apiBaseURLs[EnvProduction]
}

// Timeout is the bound applied to every outbound gateway call.
func (c FuriaPayConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// KeyWarnings lists non-fatal problems with the configured keys.
func (c FuriaPayConfig) KeyWarnings() []string {
	var warnings []string
	if c.PublicKey != "" && !strings.HasPrefix(c.PublicKey, "pk_") {
		warnings = append(warnings, "FURIA_PUBLIC_KEY does not start with pk_")
	}
	if c.SecretKey != "" && !strings.HasPrefix(c.SecretKey, "sk_") {
		warnings = append(warnings, "FURIA_SECRET_KEY does not start with sk_")
	}
	if _, ok := apiBaseURLs[strings.ToLower(c.Environment)]; !ok && c.APIURL == "" {
		warnings = append(warnings, "FURIA_ENVIRONMENT "+c.Environment+" is unknown, using production")
	}
	return warnings
}
