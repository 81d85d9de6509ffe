// Package domain contains the core business entities for the payment service.
// This is the innermost layer - no external dependencies.
package domain

import "time"

// PaymentMethod is the instrument the customer pays with.
type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodPix        PaymentMethod = "pix"
	MethodBoleto     PaymentMethod = "boleto"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCreditCard, MethodPix, MethodBoleto:
		return true
	}
	return false
}

// DocumentType distinguishes individual (CPF) from company (CNPJ) tax ids.
type DocumentType string

const (
	DocumentCPF  DocumentType = "cpf"
	DocumentCNPJ DocumentType = "cnpj"
)

// Document is a Brazilian tax id. Number holds digits only once sanitized.
type Document struct {
	Type   DocumentType `json:"type"`
	Number string       `json:"number"`
}

// Address is the optional billing address.
type Address struct {
	Street       string `json:"street,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipcode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Customer identifies the payer.
type Customer struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	Document Document `json:"document"`
	Address  *Address `json:"address,omitempty"`
}

// CardInfo carries a card that was tokenized on the client.
// The raw PAN and CVV never reach this service.
type CardInfo struct {
	Token           string `json:"-"`
	HolderName      string `json:"-"`
	ExpirationMonth int    `json:"-"`
	ExpirationYear  int    `json:"-"`
}

// LineItem is a purchased item as shown to the gateway.
type LineItem struct {
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Tangible  bool   `json:"tangible"`
}

// OrderIntent is one checkout attempt. It lives only for the duration of
// the gateway call and is never persisted.
type OrderIntent struct {
	Amount         string // human-entered, e.g. "R$ 79,90"
	PaymentMethod  PaymentMethod
	Installments   int
	PostbackURL    string
	Customer       Customer
	Card           *CardInfo
	Items          []LineItem
	Metadata       map[string]string
	IdempotencyKey string
}

// TransactionStatus is the gateway-side lifecycle state.
type TransactionStatus string

const (
	StatusPending     TransactionStatus = "pending"
	StatusProcessing  TransactionStatus = "processing"
	StatusPaid        TransactionStatus = "paid"
	StatusRefused     TransactionStatus = "refused"
	StatusChargedback TransactionStatus = "chargedback"
)

// GatewayTransaction is the transaction as reported by the gateway.
// The service reads it and never mutates it.
type GatewayTransaction struct {
	ID            string            `json:"id"`
	Status        TransactionStatus `json:"status"`
	Amount        int64             `json:"amount"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Customer      Customer          `json:"customer"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	SecureURL     string            `json:"secure_url,omitempty"`
	PixQRCode     string            `json:"pix_qr_code,omitempty"`
	PixCode       string            `json:"pix_code,omitempty"`
	BoletoURL     string            `json:"boleto_url,omitempty"`
	RefuseReason  string            `json:"refuse_reason,omitempty"`
	CreatedAt     string            `json:"created_at,omitempty"`
	UpdatedAt     string            `json:"updated_at,omitempty"`
}

// MetadataString returns metadata[key] when it is a string.
func (t *GatewayTransaction) MetadataString(key string) string {
	if t.Metadata == nil {
		return ""
	}
	if v, ok := t.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Webhook event types emitted by the gateway.
const (
	EventTransactionPaid        = "transaction.paid"
	EventTransactionRefused     = "transaction.refused"
	EventTransactionPending     = "transaction.pending"
	EventTransactionChargedback = "transaction.chargedback"
)

// WebhookEvent is one asynchronous delivery from the gateway. The same
// transaction may be delivered many times, in any order.
type WebhookEvent struct {
	Event       string             `json:"event"`
	Transaction GatewayTransaction `json:"transaction"`
	Timestamp   string             `json:"timestamp"`
}

// CheckoutResult is the normalized outcome returned to the checkout caller.
type CheckoutResult struct {
	Success       bool              `json:"success"`
	Status        TransactionStatus `json:"status,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
	SecureURL     string            `json:"secureUrl,omitempty"`
	PixCode       string            `json:"pixCode,omitempty"`
	PixQRCode     string            `json:"pixQrCode,omitempty"`
	BoletoURL     string            `json:"boletoUrl,omitempty"`
	Message       string            `json:"message"`
	Error         string            `json:"error,omitempty"`
}

// SideEffect is a webhook side effect that failed and waits for a retry.
type SideEffect struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	TransactionID string    `json:"transaction_id"`
	Payload       []byte    `json:"-"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Session is an authenticated operator session.
type Session struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credentials are what an operator presents to log in.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
