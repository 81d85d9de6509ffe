package domain

// CardPayload is the card section of a transaction payload.
// Only the client-side token is transmitted.
type CardPayload struct {
	Token           string `json:"token"`
	HolderName      string `json:"holder_name"`
	ExpirationMonth int    `json:"expiration_month"`
	ExpirationYear  int    `json:"expiration_year"`
}

// TransactionPayload is the gateway's transaction-creation schema.
type TransactionPayload struct {
	Amount        int64             `json:"amount"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Installments  int               `json:"installments"`
	PostbackURL   string            `json:"postback_url,omitempty"`
	Customer      Customer          `json:"customer"`
	Card          *CardPayload      `json:"card,omitempty"`
	Items         []LineItem        `json:"items"`
	Metadata      map[string]string `json:"metadata"`

	// IdempotencyKey travels as a header, not in the body.
	IdempotencyKey string `json:"-"`
}
