package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// MaxInstallments is the highest installment count accepted for cards.
const MaxInstallments = 12

// Metadata keys added to every payload.
const (
	MetaOrderRef       = "orderRef"
	MetaPlanID         = "planId"
	MetaPlanName       = "planName"
	MetaIdempotencyKey = "idempotencyKey"
)

var validate = validator.New()

// Builder builds gateway payloads from order intents.
type Builder struct {
	// PostbackURL is used when the intent does not name one.
	PostbackURL string

	// Now and NewID are injectable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// NewBuilder creates a Builder using the wall clock and random UUIDs.
func NewBuilder(postbackURL string) *Builder {
	return &Builder{
		PostbackURL: postbackURL,
		Now:         time.Now,
		NewID:       func() string { return uuid.New().String() },
	}
}

func invalid(format string, args ...any) error {
	return domain.NewServiceError(domain.ErrValidation, fmt.Sprintf(format, args...), domain.KindValidation)
}

// BuildTransactionPayload transforms an order intent into the gateway's
// transaction-creation schema. Card data is attached only for credit card
// payments.
func (b *Builder) BuildTransactionPayload(intent domain.OrderIntent) (domain.TransactionPayload, error) {
	var p domain.TransactionPayload

	amount, err := PriceToCents(intent.Amount)
	if err != nil || amount <= 0 {
		return p, domain.NewServiceError(domain.ErrInvalidAmount,
			fmt.Sprintf("amount %q is not a positive currency value", intent.Amount), domain.KindValidation)
	}

	if !intent.PaymentMethod.Valid() {
		return p, invalid("unsupported payment method %q", intent.PaymentMethod)
	}

	installments := intent.Installments
	if installments == 0 {
		installments = 1
	}
	if installments < 1 || installments > MaxInstallments {
		return p, invalid("installments must be between 1 and %d", MaxInstallments)
	}
	if installments > 1 && intent.PaymentMethod != domain.MethodCreditCard {
		return p, invalid("installments are only available for credit card")
	}

	customer, err := sanitizeCustomer(intent.Customer)
	if err != nil {
		return p, err
	}

	var plan *domain.Plan
	if id := intent.Metadata[MetaPlanID]; id != "" {
		found, ok := domain.FindPlan(id)
		if !ok {
			return p, invalid("unknown plan %q", id)
		}
		planCents, err := PriceToCents(found.Price)
		if err != nil {
			return p, err
		}
		if planCents != amount {
			return p, invalid("amount %s does not match plan %s price %s",
				CentsToPrice(amount), found.ID, found.Price)
		}
		plan = &found
	}

	key := strings.TrimSpace(intent.IdempotencyKey)
	if key == "" {
		key = b.NewID()
	}

	p = domain.TransactionPayload{
		Amount:         amount,
		PaymentMethod:  intent.PaymentMethod,
		Installments:   installments,
		PostbackURL:    intent.PostbackURL,
		Customer:       customer,
		Items:          buildItems(intent.Items, plan, amount),
		Metadata:       mergeMetadata(intent.Metadata, plan, key, b.NewID),
		IdempotencyKey: key,
	}
	if p.PostbackURL == "" {
		p.PostbackURL = b.PostbackURL
	}

	if intent.PaymentMethod == domain.MethodCreditCard {
		card, err := b.buildCard(intent.Card)
		if err != nil {
			return domain.TransactionPayload{}, err
		}
		p.Card = card
	}

	return p, nil
}

func sanitizeCustomer(c domain.Customer) (domain.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return c, invalid("customer name is required")
	}
	if err := validate.Var(c.Email, "required,email"); err != nil {
		return c, invalid("customer email %q is not a valid address", c.Email)
	}

	c.Phone = Digits(c.Phone)
	c.Document.Number = Digits(c.Document.Number)
	if c.Document.Type == "" {
		switch len(c.Document.Number) {
		case 11:
			c.Document.Type = domain.DocumentCPF
		case 14:
			c.Document.Type = domain.DocumentCNPJ
		}
	}

	switch c.Document.Type {
	case domain.DocumentCPF:
		if !ValidCPF(c.Document.Number) {
			return c, invalid("customer CPF is invalid")
		}
	case domain.DocumentCNPJ:
		if !ValidCNPJ(c.Document.Number) {
			return c, invalid("customer CNPJ is invalid")
		}
	default:
		return c, invalid("customer document must be a CPF or CNPJ")
	}

	if c.Address != nil {
		addr := *c.Address
		addr.ZipCode = Digits(addr.ZipCode)
		c.Address = &addr
	}
	return c, nil
}

func (b *Builder) buildCard(card *domain.CardInfo) (*domain.CardPayload, error) {
	if card == nil {
		return nil, invalid("card is required for credit card payments")
	}
	token := strings.Join(strings.Fields(card.Token), "")
	if token == "" {
		return nil, invalid("card token is required")
	}
	holder := strings.ToUpper(strings.TrimSpace(card.HolderName))
	if holder == "" {
		return nil, invalid("card holder name is required")
	}
	if !ValidExpiration(card.ExpirationMonth, card.ExpirationYear, b.Now()) {
		return nil, invalid("card expiration %02d/%d is invalid", card.ExpirationMonth, card.ExpirationYear)
	}
	return &domain.CardPayload{
		Token:           token,
		HolderName:      holder,
		ExpirationMonth: card.ExpirationMonth,
		ExpirationYear:  card.ExpirationYear,
	}, nil
}

func buildItems(items []domain.LineItem, plan *domain.Plan, amount int64) []domain.LineItem {
	if len(items) > 0 {
		out := make([]domain.LineItem, len(items))
		copy(out, items)
		for i := range out {
			if out[i].Quantity < 1 {
				out[i].Quantity = 1
			}
		}
		return out
	}

	title := "PetBox"
	if plan != nil {
		title = "PetBox " + plan.Name
	}
	return []domain.LineItem{{Title: title, UnitPrice: amount, Quantity: 1, Tangible: true}}
}

func mergeMetadata(in map[string]string, plan *domain.Plan, key string, newID func() string) map[string]string {
	out := make(map[string]string, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	if out[MetaOrderRef] == "" {
		out[MetaOrderRef] = "order_" + newID()
	}
	if plan != nil {
		out[MetaPlanID] = plan.ID
		out[MetaPlanName] = plan.Name
	}
	out[MetaIdempotencyKey] = key
	return out
}
