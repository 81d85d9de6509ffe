package mercadopago

import (
	"context"
	"errors"
	"testing"

	"github.com/mercadopago/sdk-go/pkg/mperror"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/domain"
)

func TestCreateTransaction_NotConfigured(t *testing.T) {
	a := NewAdapter("", zap.NewNop())
	_, err := a.CreateTransaction(context.Background(), domain.TransactionPayload{Amount: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, domain.KindConfiguration, domain.Code(err))
}

func TestToRequest(t *testing.T) {
	p := domain.TransactionPayload{
		Amount:        7990,
		PaymentMethod: domain.MethodCreditCard,
		Installments:  3,
		PostbackURL:   "https://petbox.example/webhook/mercadopago",
		Customer: domain.Customer{
			Name:     "Marina Silva",
			Email:    "marina@example.com",
			Document: domain.Document{Type: domain.DocumentCPF, Number: "11144477735"},
		},
		Card:     &domain.CardPayload{Token: "tok_1"},
		Items:    []domain.LineItem{{Title: "PetBox Premium", UnitPrice: 7990, Quantity: 1}},
		Metadata: map[string]string{"orderRef": "order_1", MetaCardBrand: "visa"},
	}

	req := toRequest(p)
	assert.InDelta(t, 79.90, req.TransactionAmount, 0.0001)
	assert.Equal(t, "visa", req.PaymentMethodID)
	assert.Equal(t, "tok_1", req.Token)
	assert.Equal(t, 3, req.Installments)
	assert.Equal(t, "order_1", req.ExternalReference)
	assert.Equal(t, "PetBox Premium", req.Description)
	require.NotNil(t, req.Payer)
	assert.Equal(t, "Marina", req.Payer.FirstName)
	assert.Equal(t, "Silva", req.Payer.LastName)
	assert.Equal(t, "CPF", req.Payer.Identification.Type)
	assert.Equal(t, "order_1", req.Metadata["orderRef"])

	p.PaymentMethod = domain.MethodPix
	assert.Equal(t, "pix", toRequest(p).PaymentMethodID)
	assert.Empty(t, toRequest(p).Token)
}

func TestFromResponse_Pix(t *testing.T) {
	var r payment.Response
	r.ID = 1234
	r.Status = "pending"
	r.TransactionAmount = 79.9
	r.PaymentMethodID = "pix"
	r.PaymentTypeID = "bank_transfer"
	r.PointOfInteraction.TransactionData.QRCode = "00020126..."
	r.PointOfInteraction.TransactionData.TicketURL = "https://mp/pix/1234"

	tx := fromResponse(&r)
	assert.Equal(t, "1234", tx.ID)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, int64(7990), tx.Amount)
	assert.Equal(t, domain.MethodPix, tx.PaymentMethod)
	assert.Equal(t, "00020126...", tx.PixCode)
	assert.Equal(t, "https://mp/pix/1234", tx.SecureURL)
}

func TestMapStatusAndEvent(t *testing.T) {
	tests := []struct {
		mp     string
		status domain.TransactionStatus
		event  string
	}{
		{"approved", domain.StatusPaid, domain.EventTransactionPaid},
		{"pending", domain.StatusPending, domain.EventTransactionPending},
		{"in_process", domain.StatusProcessing, domain.EventTransactionPending},
		{"rejected", domain.StatusRefused, domain.EventTransactionRefused},
		{"charged_back", domain.StatusChargedback, domain.EventTransactionChargedback},
	}
	for _, tt := range tests {
		t.Run(tt.mp, func(t *testing.T) {
			assert.Equal(t, tt.status, mapStatus(tt.mp))
			assert.Equal(t, tt.event, EventForStatus(tt.status))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   error
		kind   string
	}{
		{400, domain.ErrValidation, domain.KindValidation},
		{401, domain.ErrGatewayAuth, domain.KindAuthentication},
		{402, domain.ErrPaymentDeclined, domain.KindDeclined},
		{404, domain.ErrTransactionNotFound, domain.KindNotFound},
		{429, domain.ErrRateLimited, domain.KindRateLimited},
		{502, domain.ErrGatewayUnavailable, domain.KindGatewayUnavailable},
	}
	for _, tt := range tests {
		err := classify(&mperror.ResponseError{StatusCode: tt.status, Message: "detail"})
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		assert.Equal(t, tt.kind, domain.Code(err), "status %d", tt.status)
	}

	err := classify(errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestWebhookValidator(t *testing.T) {
	v := NewWebhookValidator("mp-secret")
	header := SignatureHeader("123456", "req-1", "1700000000", "mp-secret")

	assert.True(t, v.ValidateSignature(header, "req-1", "123456"))
	assert.False(t, v.ValidateSignature(header, "req-2", "123456"))
	assert.False(t, v.ValidateSignature(header, "req-1", "999"))
	assert.False(t, v.ValidateSignature("garbage", "req-1", "123456"))
	assert.False(t, NewWebhookValidator("").ValidateSignature(header, "req-1", "123456"))
	assert.True(t, v.Enabled())
}
