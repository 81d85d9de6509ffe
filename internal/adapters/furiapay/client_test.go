package furiapay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/config"
	"github.com/petbox/petbox-payments/internal/core/domain"
)

type stubGateway struct {
	server *httptest.Server
	calls  atomic.Int32
	last   *http.Request
	body   []byte
}

func newStubGateway(t *testing.T, status int, response string) *stubGateway {
	t.Helper()
	s := &stubGateway{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.last = r
		s.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(s.server.Close)
	return s
}

func testConfig(apiURL string) config.FuriaPayConfig {
	return config.FuriaPayConfig{
		PublicKey:      "pk_test_1234567890",
		SecretKey:      "sk_test_1234567890",
		Environment:    "test",
		APIURL:         apiURL,
		TimeoutSeconds: 5,
	}
}

func cardPayload() domain.TransactionPayload {
	return domain.TransactionPayload{
		Amount:        7990,
		PaymentMethod: domain.MethodCreditCard,
		Installments:  1,
		Customer: domain.Customer{
			Name:     "Marina Silva",
			Email:    "marina@example.com",
			Document: domain.Document{Type: domain.DocumentCPF, Number: "11144477735"},
		},
		Card: &domain.CardPayload{
			Token:           "tok_abc",
			HolderName:      "MARINA SILVA",
			ExpirationMonth: 12,
			ExpirationYear:  2030,
		},
		Metadata:       map[string]string{"planId": "premium"},
		IdempotencyKey: "idem-1",
	}
}

func TestCreateTransaction_Success(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, `{"id": 12345, "status": "paid", "amount": 7990, "payment_method": "credit_card"}`)
	client := NewClient(testConfig(gw.server.URL), zap.NewNop())

	tx, err := client.CreateTransaction(context.Background(), cardPayload())
	require.NoError(t, err)

	assert.Equal(t, "12345", tx.ID)
	assert.Equal(t, domain.StatusPaid, tx.Status)
	assert.Equal(t, int64(7990), tx.Amount)

	require.Equal(t, int32(1), gw.calls.Load())
	assert.Equal(t, http.MethodPost, gw.last.Method)
	assert.Equal(t, "/transactions", gw.last.URL.Path)
	assert.Equal(t, testConfig("").AuthHeader(), gw.last.Header.Get("Authorization"))
	assert.Equal(t, "application/json", gw.last.Header.Get("Content-Type"))
	assert.Equal(t, "idem-1", gw.last.Header.Get("Idempotency-Key"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(gw.body, &sent))
	assert.EqualValues(t, 7990, sent["amount"])
	card := sent["card"].(map[string]any)
	assert.Equal(t, "tok_abc", card["token"])
	assert.NotContains(t, card, "number")
	assert.NotContains(t, card, "cvv")
}

func TestCreateTransaction_DataEnvelope(t *testing.T) {
	gw := newStubGateway(t, http.StatusCreated, `{"data": {"id": "tx_1", "status": "pending", "secure_url": "https://pay/1"}}`)
	client := NewClient(testConfig(gw.server.URL), zap.NewNop())

	tx, err := client.CreateTransaction(context.Background(), cardPayload())
	require.NoError(t, err)
	assert.Equal(t, "tx_1", tx.ID)
	assert.Equal(t, "https://pay/1", tx.SecureURL)
}

func TestCreateTransaction_NotConfiguredMakesNoCall(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, `{"id": "tx_1"}`)
	cfg := testConfig(gw.server.URL)
	cfg.SecretKey = ""
	client := NewClient(cfg, zap.NewNop())

	_, err := client.CreateTransaction(context.Background(), cardPayload())
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, domain.KindConfiguration, domain.Code(err))
	assert.Equal(t, http.StatusServiceUnavailable, domain.HTTPStatus(err))
	assert.Equal(t, int32(0), gw.calls.Load())
}

func TestCreateTransaction_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
		kind   string
	}{
		{"bad request", http.StatusBadRequest, `{"message": "document invalid"}`, domain.ErrValidation, domain.KindValidation},
		{"unauthorized", http.StatusUnauthorized, `{}`, domain.ErrGatewayAuth, domain.KindAuthentication},
		{"declined", http.StatusPaymentRequired, `{"refuse_reason": "insufficient funds"}`, domain.ErrPaymentDeclined, domain.KindDeclined},
		{"rate limited", http.StatusTooManyRequests, ``, domain.ErrRateLimited, domain.KindRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, domain.ErrGatewayUnavailable, domain.KindGatewayUnavailable},
		{"bad gateway", http.StatusBadGateway, ``, domain.ErrGatewayUnavailable, domain.KindGatewayUnavailable},
		{"unprocessable", http.StatusUnprocessableEntity, `{}`, domain.ErrValidation, domain.KindValidation},
		{"ok but garbage", http.StatusOK, `<html>`, domain.ErrInvalidResponse, domain.KindInvalidResponse},
		{"ok without id", http.StatusOK, `{"status": "paid"}`, domain.ErrInvalidResponse, domain.KindInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newStubGateway(t, tt.status, tt.body)
			client := NewClient(testConfig(gw.server.URL), zap.NewNop())

			_, err := client.CreateTransaction(context.Background(), cardPayload())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
			assert.Equal(t, tt.kind, domain.Code(err))
			assert.Equal(t, int32(1), gw.calls.Load(), "single attempt, no retry")
		})
	}
}

func TestCreateTransaction_DeclineDistinctFromRateLimit(t *testing.T) {
	declined := newStubGateway(t, http.StatusPaymentRequired, `{}`)
	limited := newStubGateway(t, http.StatusTooManyRequests, `{}`)

	_, errDeclined := NewClient(testConfig(declined.server.URL), zap.NewNop()).CreateTransaction(context.Background(), cardPayload())
	_, errLimited := NewClient(testConfig(limited.server.URL), zap.NewNop()).CreateTransaction(context.Background(), cardPayload())

	assert.ErrorIs(t, errDeclined, domain.ErrPaymentDeclined)
	assert.ErrorIs(t, errLimited, domain.ErrRateLimited)
	assert.NotEqual(t, errDeclined.Error(), errLimited.Error())
	assert.Equal(t, http.StatusPaymentRequired, domain.HTTPStatus(errDeclined))
	assert.Equal(t, http.StatusTooManyRequests, domain.HTTPStatus(errLimited))
}

func TestCreateTransaction_NetworkError(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, `{}`)
	url := gw.server.URL
	gw.server.Close()

	_, err := NewClient(testConfig(url), zap.NewNop()).CreateTransaction(context.Background(), cardPayload())
	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, domain.KindNetwork, domain.Code(err))
}

func TestCreateTransaction_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zap.NewNop())
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err := client.CreateTransaction(context.Background(), cardPayload())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestCreateTransaction_IncompletePix(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, `{"id": "tx_pix", "status": "pending"}`)
	payload := cardPayload()
	payload.PaymentMethod = domain.MethodPix
	payload.Card = nil

	_, err := NewClient(testConfig(gw.server.URL), zap.NewNop()).CreateTransaction(context.Background(), payload)
	require.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.Equal(t, domain.KindIncompletePixResponse, domain.Code(err))
}

func TestCreateTransaction_PixWithCode(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, `{"id": "tx_pix", "status": "pending", "pix": {"qrcode": "00020126"}}`)
	payload := cardPayload()
	payload.PaymentMethod = domain.MethodPix
	payload.Card = nil

	tx, err := NewClient(testConfig(gw.server.URL), zap.NewNop()).CreateTransaction(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "00020126", tx.PixCode)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(gw.body, &sent))
	assert.NotContains(t, sent, "card")
}

func TestGetTransaction(t *testing.T) {
	gw := newStubGateway(t, http.StatusOK, `{"id": "tx_9", "status": "refused", "refuse_reason": "antifraud"}`)
	client := NewClient(testConfig(gw.server.URL), zap.NewNop())

	tx, err := client.GetTransaction(context.Background(), "tx_9")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefused, tx.Status)
	assert.Equal(t, "/transactions/tx_9", gw.last.URL.Path)
	assert.Equal(t, http.MethodGet, gw.last.Method)

	missing := newStubGateway(t, http.StatusNotFound, `{}`)
	_, err = NewClient(testConfig(missing.server.URL), zap.NewNop()).GetTransaction(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}
