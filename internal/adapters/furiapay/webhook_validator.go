package furiapay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Furia-Signature"

// WebhookValidator validates FuriaPay webhook signatures.
type WebhookValidator struct {
	secret string
}

// NewWebhookValidator creates a new webhook validator.
func NewWebhookValidator(secret string) *WebhookValidator {
	return &WebhookValidator{secret: secret}
}

// ValidateSignature checks a "sha256=<hex>" (or bare hex) HMAC-SHA256 of
// the raw body.
func (v *WebhookValidator) ValidateSignature(body []byte, signature string) bool {
	if v.secret == "" || signature == "" {
		return false
	}
	hash := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")

	// Compare signatures (constant-time comparison)
	return hmac.Equal([]byte(strings.ToLower(hash)), []byte(Sign(body, v.secret)))
}

// Sign computes the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
