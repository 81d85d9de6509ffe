package furiapay

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

// flexString accepts both JSON strings and numbers. Any other shape
// (object, array, bool) decodes to "" instead of failing the whole body.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = ""
	if len(b) == 0 {
		return nil
	}
	switch {
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = flexString(n.String())
	}
	return nil
}

// loose decodes into T when the value has the expected shape and leaves the
// zero value otherwise.
type loose[T any] struct {
	V T
}

func (l *loose[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err == nil {
		l.V = v
	}
	return nil
}

// wireDocument is either {"type": "cpf", "number": "..."} or the bare number.
type wireDocument struct {
	Type   flexString
	Number flexString
}

func (d *wireDocument) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Type   flexString `json:"type"`
			Number flexString `json:"number"`
		}
		if err := json.Unmarshal(b, &obj); err == nil {
			d.Type, d.Number = obj.Type, obj.Number
		}
		return nil
	}
	return d.Number.UnmarshalJSON(b)
}

func (d wireDocument) toDomain() domain.Document {
	doc := domain.Document{Type: domain.DocumentType(d.Type), Number: string(d.Number)}
	if doc.Type == "" && doc.Number != "" {
		doc.Type = domain.DocumentCPF
		if digitCount(doc.Number) == 14 {
			doc.Type = domain.DocumentCNPJ
		}
	}
	return doc
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

type wireCustomer struct {
	Name     flexString             `json:"name"`
	Email    flexString             `json:"email"`
	Phone    flexString             `json:"phone"`
	Document wireDocument           `json:"document"`
	Address  loose[*domain.Address] `json:"address"`
}

func (c wireCustomer) toDomain() domain.Customer {
	return domain.Customer{
		Name:     string(c.Name),
		Email:    string(c.Email),
		Phone:    string(c.Phone),
		Document: c.Document.toDomain(),
		Address:  c.Address.V,
	}
}

// flexAmount accepts integer cents as a JSON number or numeric string.
// Unparseable strings decode to zero rather than failing the whole body.
type flexAmount int64

func (f *flexAmount) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexAmount(math.Round(n))
	return nil
}

// wirePix is the nested PIX block some gateway responses carry.
type wirePix struct {
	QRCode flexString `json:"qrcode"`
}

// wireTransaction is the transaction resource as the gateway serializes it.
// Every field decodes tolerantly so a surprising shape never rejects a body.
type wireTransaction struct {
	ID            flexString            `json:"id"`
	Status        flexString            `json:"status"`
	Amount        flexAmount            `json:"amount"`
	PaymentMethod flexString            `json:"payment_method"`
	Customer      loose[wireCustomer]   `json:"customer"`
	Metadata      loose[map[string]any] `json:"metadata"`
	SecureURL     flexString            `json:"secure_url"`
	PixQRCode     flexString            `json:"pix_qr_code"`
	PixCode       flexString            `json:"pix_code"`
	BoletoURL     flexString            `json:"boleto_url"`
	RefuseReason  flexString            `json:"refuse_reason"`
	CreatedAt     flexString            `json:"created_at"`
	UpdatedAt     flexString            `json:"updated_at"`
	Data          json.RawMessage       `json:"data"`
	Pix           loose[*wirePix]       `json:"pix"`
}

func (w wireTransaction) toDomain() *domain.GatewayTransaction {
	tx := &domain.GatewayTransaction{
		ID:            string(w.ID),
		Status:        domain.TransactionStatus(w.Status),
		Amount:        int64(w.Amount),
		PaymentMethod: domain.PaymentMethod(w.PaymentMethod),
		Customer:      w.Customer.V.toDomain(),
		Metadata:      w.Metadata.V,
		SecureURL:     string(w.SecureURL),
		PixQRCode:     string(w.PixQRCode),
		PixCode:       string(w.PixCode),
		BoletoURL:     string(w.BoletoURL),
		RefuseReason:  string(w.RefuseReason),
		CreatedAt:     string(w.CreatedAt),
		UpdatedAt:     string(w.UpdatedAt),
	}
	if tx.PixCode == "" && w.Pix.V != nil {
		tx.PixCode = string(w.Pix.V.QRCode)
	}
	return tx
}

// decodeTransaction parses a 2xx body, unwrapping a {"data": {...}} envelope.
func decodeTransaction(body []byte) (*domain.GatewayTransaction, error) {
	var w wireTransaction
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}
	if w.ID == "" && len(w.Data) > 0 {
		var inner wireTransaction
		if err := json.Unmarshal(w.Data, &inner); err == nil {
			w = inner
		}
	}
	if w.ID == "" {
		return nil, errors.New("transaction id missing from response")
	}
	return w.toDomain(), nil
}
