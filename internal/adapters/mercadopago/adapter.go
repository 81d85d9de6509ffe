// Package mercadopago implements the PaymentGateway interface using the official SDK.
package mercadopago

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/mperror"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/checkout"
	"github.com/petbox/petbox-payments/internal/core/domain"
)

// MetaCardBrand names the intent metadata key carrying the card brand
// ("visa", "master", ...) that Mercado Pago requires for card payments.
const MetaCardBrand = "cardBrand"

// Adapter implements ports.PaymentGateway using Mercado Pago SDK.
type Adapter struct {
	accessToken string
	logger      *zap.Logger
}

// NewAdapter creates a new Mercado Pago adapter.
func NewAdapter(accessToken string, logger *zap.Logger) *Adapter {
	return &Adapter{accessToken: accessToken, logger: logger.Named("mercadopago")}
}

func (a *Adapter) client() (payment.Client, error) {
	if a.accessToken == "" {
		return nil, domain.NewServiceError(domain.ErrConfiguration,
			"MP_ACCESS_TOKEN is not set", domain.KindConfiguration)
	}
	cfg, err := config.New(a.accessToken)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrConfiguration,
			"failed to create MP config", domain.KindConfiguration)
	}
	return payment.NewClient(cfg), nil
}

// CreateTransaction creates a payment through the Payments API.
func (a *Adapter) CreateTransaction(ctx context.Context, p domain.TransactionPayload) (*domain.GatewayTransaction, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	result, err := client.Create(ctx, toRequest(p))
	if err != nil {
		a.logger.Warn("create payment failed", zap.Error(err))
		return nil, classify(err)
	}

	tx := fromResponse(result)
	if p.PaymentMethod == domain.MethodPix && tx.SecureURL == "" && tx.PixCode == "" {
		return nil, domain.NewServiceError(domain.ErrInvalidResponse,
			"PIX payment created without a code or payment URL", domain.KindIncompletePixResponse)
	}
	return &tx, nil
}

// GetTransaction retrieves payment details from Mercado Pago.
func (a *Adapter) GetTransaction(ctx context.Context, id string) (*domain.GatewayTransaction, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}

	paymentID, err := strconv.Atoi(id)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrValidation,
			"invalid payment ID format", domain.KindValidation)
	}

	result, err := client.Get(ctx, paymentID)
	if err != nil {
		return nil, classify(err)
	}
	tx := fromResponse(result)
	return &tx, nil
}

func toRequest(p domain.TransactionPayload) payment.Request {
	metadata := make(map[string]any, len(p.Metadata))
	for k, v := range p.Metadata {
		metadata[k] = v
	}

	firstName, lastName, _ := strings.Cut(p.Customer.Name, " ")
	req := payment.Request{
		TransactionAmount: float64(p.Amount) / 100,
		Installments:      p.Installments,
		Description:       description(p),
		ExternalReference: p.Metadata[checkout.MetaOrderRef],
		NotificationURL:   p.PostbackURL,
		Metadata:          metadata,
		Payer: &payment.PayerRequest{
			Email:     p.Customer.Email,
			FirstName: firstName,
			LastName:  lastName,
			Identification: &payment.IdentificationRequest{
				Type:   strings.ToUpper(string(p.Customer.Document.Type)),
				Number: p.Customer.Document.Number,
			},
		},
	}

	switch p.PaymentMethod {
	case domain.MethodPix:
		req.PaymentMethodID = "pix"
	case domain.MethodBoleto:
		req.PaymentMethodID = "bolbradesco"
	case domain.MethodCreditCard:
		req.PaymentMethodID = p.Metadata[MetaCardBrand]
		if p.Card != nil {
			req.Token = p.Card.Token
		}
	}
	return req
}

func description(p domain.TransactionPayload) string {
	if len(p.Items) == 0 {
		return "PetBox"
	}
	return p.Items[0].Title
}

func fromResponse(r *payment.Response) domain.GatewayTransaction {
	tx := domain.GatewayTransaction{
		ID:            strconv.Itoa(r.ID),
		Status:        mapStatus(r.Status),
		Amount:        int64(r.TransactionAmount*100 + 0.5),
		PaymentMethod: mapMethod(r.PaymentMethodID, r.PaymentTypeID),
		Metadata:      r.Metadata,
		PixCode:       r.PointOfInteraction.TransactionData.QRCode,
		PixQRCode:     r.PointOfInteraction.TransactionData.QRCodeBase64,
		SecureURL:     r.PointOfInteraction.TransactionData.TicketURL,
		RefuseReason:  refuseReason(r.Status, r.StatusDetail),
	}
	tx.Customer.Email = r.Payer.Email
	if tx.PaymentMethod == domain.MethodBoleto {
		tx.BoletoURL = r.TransactionDetails.ExternalResourceURL
	}
	if !r.DateCreated.IsZero() {
		tx.CreatedAt = r.DateCreated.Format(time.RFC3339)
	}
	if !r.DateLastUpdated.IsZero() {
		tx.UpdatedAt = r.DateLastUpdated.Format(time.RFC3339)
	}
	return tx
}

// mapStatus maps MP payment status to the gateway lifecycle.
func mapStatus(status string) domain.TransactionStatus {
	switch status {
	case "approved":
		return domain.StatusPaid
	case "pending":
		return domain.StatusPending
	case "in_process", "authorized", "in_mediation":
		return domain.StatusProcessing
	case "rejected", "cancelled", "refunded":
		return domain.StatusRefused
	case "charged_back":
		return domain.StatusChargedback
	default:
		return domain.StatusProcessing
	}
}

// EventForStatus maps a gateway status to the webhook event that asserts it.
func EventForStatus(status domain.TransactionStatus) string {
	switch status {
	case domain.StatusPaid:
		return domain.EventTransactionPaid
	case domain.StatusRefused:
		return domain.EventTransactionRefused
	case domain.StatusChargedback:
		return domain.EventTransactionChargedback
	default:
		return domain.EventTransactionPending
	}
}

func mapMethod(methodID, typeID string) domain.PaymentMethod {
	switch {
	case methodID == "pix":
		return domain.MethodPix
	case typeID == "ticket":
		return domain.MethodBoleto
	default:
		return domain.MethodCreditCard
	}
}

func refuseReason(status, detail string) string {
	if status == "rejected" || status == "cancelled" {
		return detail
	}
	return ""
}

// classify maps SDK errors onto the shared error taxonomy.
func classify(err error) error {
	var respErr *mperror.ResponseError
	if !errors.As(err, &respErr) {
		return domain.NewServiceError(domain.ErrNetwork,
			"could not reach Mercado Pago: "+err.Error(), domain.KindNetwork)
	}

	detail := respErr.Message
	switch code := respErr.StatusCode; {
	case code == http.StatusBadRequest:
		return domain.NewServiceError(domain.ErrValidation, "check payment data: "+detail, domain.KindValidation)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.NewServiceError(domain.ErrGatewayAuth, "Mercado Pago rejected the credentials", domain.KindAuthentication)
	case code == http.StatusPaymentRequired:
		return domain.NewServiceError(domain.ErrPaymentDeclined, "payment was declined: "+detail, domain.KindDeclined)
	case code == http.StatusNotFound:
		return domain.NewServiceError(domain.ErrTransactionNotFound, "payment not found", domain.KindNotFound)
	case code == http.StatusTooManyRequests:
		return domain.NewServiceError(domain.ErrRateLimited, "too many requests, try again shortly", domain.KindRateLimited)
	case code >= 500:
		return domain.NewServiceError(domain.ErrGatewayUnavailable,
			fmt.Sprintf("Mercado Pago unavailable (HTTP %d)", code), domain.KindGatewayUnavailable)
	case code >= 400:
		return domain.NewServiceError(domain.ErrValidation, "check payment data: "+detail, domain.KindValidation)
	}
	return domain.NewServiceError(domain.ErrInvalidResponse, "unexpected Mercado Pago response", domain.KindInvalidResponse)
}
