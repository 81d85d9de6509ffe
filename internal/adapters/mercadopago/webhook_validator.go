package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Notification is the body Mercado Pago posts to the notification URL.
type Notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// WebhookValidator validates the x-signature header Mercado Pago attaches
// to notifications. The header looks like "ts=<unix>,v1=<hex hmac>" and the
// HMAC-SHA256 covers "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
type WebhookValidator struct {
	secret string
}

// NewWebhookValidator creates a validator for secret.
func NewWebhookValidator(secret string) *WebhookValidator {
	return &WebhookValidator{secret: secret}
}

// Enabled reports whether a secret is configured.
func (v *WebhookValidator) Enabled() bool {
	return v.secret != ""
}

// ValidateSignature checks xSignature for the given notification.
func (v *WebhookValidator) ValidateSignature(xSignature, xRequestID, dataID string) bool {
	if xSignature == "" || v.secret == "" {
		return false
	}
	ts, hash := parseSignatureHeader(xSignature)
	if ts == "" || hash == "" {
		return false
	}
	expected := sign(manifest(dataID, xRequestID, ts), v.secret)
	return hmac.Equal([]byte(strings.ToLower(hash)), []byte(expected))
}

// SignatureHeader builds an x-signature header value. Used by tooling and tests.
func SignatureHeader(dataID, xRequestID, ts, secret string) string {
	return "ts=" + ts + ",v1=" + sign(manifest(dataID, xRequestID, ts), secret)
}

func parseSignatureHeader(header string) (ts, hash string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			hash = value
		}
	}
	return ts, hash
}

func manifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		// MP lowercases alphanumeric ids before signing.
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	b.WriteString("ts:" + ts + ";")
	return b.String()
}

func sign(manifest, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(manifest))
	return hex.EncodeToString(h.Sum(nil))
}
