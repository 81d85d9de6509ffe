// Package domain contains the core business entities for the payment service.
package domain

import (
	"errors"
	"net/http"
)

// Domain errors - represent business rule violations.
var (
	// ErrConfiguration is returned when gateway credentials are missing.
	ErrConfiguration = errors.New("payment gateway not configured")

	// ErrValidation is returned for user-correctable checkout data defects.
	ErrValidation = errors.New("invalid payment data")

	// ErrInvalidAmount is returned when an amount cannot be normalized to cents.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrPaymentDeclined is a business outcome, not a bug.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrGatewayUnavailable is returned for transient gateway failures.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrNetwork is returned when the gateway could not be reached at all.
	ErrNetwork = errors.New("network error reaching payment gateway")

	// ErrGatewayAuth is returned when the gateway rejects our credentials.
	ErrGatewayAuth = errors.New("payment gateway authentication failed")

	// ErrRateLimited is returned when the gateway throttles us.
	ErrRateLimited = errors.New("payment gateway rate limit exceeded")

	// ErrInvalidResponse is returned when a 2xx body cannot be understood.
	ErrInvalidResponse = errors.New("invalid payment gateway response")

	// ErrTransactionNotFound is returned by transaction lookups.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrMalformedWebhook is returned when a webhook lacks required fields.
	ErrMalformedWebhook = errors.New("malformed webhook")

	// ErrWebhookValidationFailed is returned when the webhook signature is invalid.
	ErrWebhookValidationFailed = errors.New("webhook signature validation failed")

	// ErrUnauthorized is returned when operator credentials are wrong.
	ErrUnauthorized = errors.New("invalid credentials")
)

// Normalized error kinds exposed to checkout callers.
const (
	KindConfiguration         = "payment_not_configured"
	KindValidation            = "invalid_request"
	KindAuthentication        = "authentication_error"
	KindDeclined              = "payment_declined"
	KindRateLimited           = "rate_limited"
	KindGatewayUnavailable    = "gateway_unavailable"
	KindNetwork               = "network_error"
	KindInvalidResponse       = "invalid_response"
	KindIncompletePixResponse = "incomplete_pix_response"
	KindNotFound              = "not_found"
	KindRawCardData           = "raw_card_data_rejected"
	KindMalformedWebhook      = "malformed_webhook"
	KindInternal              = "internal_error"
)

// ServiceError wraps errors with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(err error, message, code string) *ServiceError {
	return &ServiceError{Err: err, Message: message, Code: code}
}

// HTTPStatus maps a service error to the status code the checkout endpoint returns.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrGatewayAuth), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrGatewayUnavailable), errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, ErrTransactionNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Code returns the normalized kind of err, or KindInternal.
func Code(err error) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Code != "" {
		return se.Code
	}
	return KindInternal
}
