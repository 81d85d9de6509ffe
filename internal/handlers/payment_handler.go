// Package handlers contains the HTTP handlers for the payment service.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/core/service"
)

// CheckoutService is the part of service.PaymentService the handlers use.
type CheckoutService interface {
	Checkout(ctx context.Context, intent domain.OrderIntent) (*domain.CheckoutResult, error)
	Lookup(ctx context.Context, id string) (*service.TransactionView, error)
}

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	service CheckoutService
	logger  *zap.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(svc CheckoutService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: logger}
}

// amountField accepts "R$ 79,90" as well as a bare JSON number like 79.9.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a string or a number")
	}
	*a = amountField(n.String())
	return nil
}

type documentRequest struct {
	Type   string `json:"type" binding:"omitempty,oneof=cpf cnpj"`
	Number string `json:"number" binding:"required,cpf|cnpj"`
}

type customerRequest struct {
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Phone    string          `json:"phone"`
	Document documentRequest `json:"document" binding:"required"`
	Address  *domain.Address `json:"address"`
}

// cardRequest declares number and cvv only to reject them.
type cardRequest struct {
	Token           string `json:"token"`
	HolderName      string `json:"holderName"`
	ExpirationMonth int    `json:"expirationMonth"`
	ExpirationYear  int    `json:"expirationYear"`

	Number string `json:"number"`
	CVV    string `json:"cvv"`
}

type itemRequest struct {
	Title     string `json:"title" binding:"required"`
	UnitPrice int64  `json:"unitPrice" binding:"min=0"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
	Tangible  bool   `json:"tangible"`
}

// ProcessPaymentRequest is the body of POST /process-payment.
type ProcessPaymentRequest struct {
	Amount         amountField       `json:"amount" binding:"required"`
	PaymentMethod  string            `json:"paymentMethod" binding:"required,oneof=credit_card pix boleto"`
	Installments   int               `json:"installments" binding:"omitempty,min=1,max=12"`
	PostbackURL    string            `json:"postbackUrl" binding:"omitempty,url"`
	Metadata       map[string]string `json:"metadata"`
	Customer       customerRequest   `json:"customer" binding:"required"`
	Card           *cardRequest      `json:"card"`
	Items          []itemRequest     `json:"items" binding:"omitempty,dive"`
	IdempotencyKey string            `json:"idempotencyKey" binding:"omitempty,max=64"`
}

func (r *ProcessPaymentRequest) toIntent() domain.OrderIntent {
	intent := domain.OrderIntent{
		Amount:         string(r.Amount),
		PaymentMethod:  domain.PaymentMethod(r.PaymentMethod),
		Installments:   r.Installments,
		PostbackURL:    r.PostbackURL,
		Metadata:       r.Metadata,
		IdempotencyKey: r.IdempotencyKey,
		Customer: domain.Customer{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
			Document: domain.Document{
				Type:   domain.DocumentType(r.Customer.Document.Type),
				Number: r.Customer.Document.Number,
			},
			Address: r.Customer.Address,
		},
	}
	if r.Card != nil {
		intent.Card = &domain.CardInfo{
			Token:           r.Card.Token,
			HolderName:      r.Card.HolderName,
			ExpirationMonth: r.Card.ExpirationMonth,
			ExpirationYear:  r.Card.ExpirationYear,
		}
	}
	for _, it := range r.Items {
		intent.Items = append(intent.Items, domain.LineItem{
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Tangible:  it.Tangible,
		})
	}
	return intent
}

// ProcessPayment handles POST /process-payment
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, domain.CheckoutResult{
			Success: false,
			Message: "Invalid request: " + err.Error(),
			Error:   domain.KindValidation,
		})
		return
	}

	// Card data must be tokenized client-side.
	if req.Card != nil && (req.Card.Number != "" || req.Card.CVV != "") {
		h.logger.Warn("raw card data rejected", zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusBadRequest, domain.CheckoutResult{
			Success: false,
			Message: "Card data must be tokenized before it is sent",
			Error:   domain.KindRawCardData,
		})
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), req.toIntent())
	if err != nil {
		c.JSON(domain.HTTPStatus(err), domain.CheckoutResult{
			Success: false,
			Message: userMessage(err),
			Error:   domain.Code(err),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// userMessage picks the text shown to the customer for err.
func userMessage(err error) string {
	var se *domain.ServiceError
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return "Payments are temporarily unavailable"
	case errors.Is(err, domain.ErrNetwork):
		return "Could not reach the payment provider, check your connection and try again"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "The payment provider is unavailable, try again later"
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many attempts, wait a moment and try again"
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	}
	return "Internal server error, try again"
}

// Plans handles GET /plans
func (h *PaymentHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": domain.Plans})
}

// Health handles GET /health
func (h *PaymentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "petbox-payments",
		"version": "1.0.0",
	})
}
