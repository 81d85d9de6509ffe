package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/petbox/petbox-payments/internal/core/checkout"
	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/core/flow"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func checkoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Run a storefront checkout against the service",
		Long: `Walk the storefront flow (login or guest, plan, method, submit) and
print the payment result, e.g.

  petboxctl checkout --plan premium --method pix --name "Ana Souza" \
    --email ana@example.com --document 529.982.247-25`,
		Args: cobra.NoArgs,
		RunE: runCheckout,
	}

	cmd.Flags().String("server", "http://localhost:8080", "Service base URL")
	cmd.Flags().StringP("plan", "p", "premium", "Plan id")
	cmd.Flags().StringP("method", "m", string(domain.MethodPix), "Payment method (credit_card, pix, boleto)")
	cmd.Flags().String("name", "", "Customer full name")
	cmd.Flags().String("email", "", "Customer email")
	cmd.Flags().String("phone", "", "Customer phone")
	cmd.Flags().String("document", "", "Customer CPF or CNPJ")
	cmd.Flags().String("card-token", "", "Tokenized card (credit_card only)")
	cmd.Flags().String("holder", "", "Card holder name")
	cmd.Flags().Int("exp-month", 0, "Card expiration month")
	cmd.Flags().Int("exp-year", 0, "Card expiration year")
	cmd.Flags().Int("installments", 1, "Installments (1-12)")
	cmd.Flags().String("login-email", "", "Operator email; checkout runs as guest when empty")
	cmd.Flags().String("login-password", "", "Operator password")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

func runCheckout(cmd *cobra.Command, _ []string) error {
	server, _ := cmd.Flags().GetString("server")
	planID, _ := cmd.Flags().GetString("plan")
	method, _ := cmd.Flags().GetString("method")
	loginEmail, _ := cmd.Flags().GetString("login-email")
	loginPassword, _ := cmd.Flags().GetString("login-password")
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	m := flow.New()
	if loginEmail != "" {
		if err := m.BeginLogin(); err != nil {
			return err
		}
		session, err := login(ctx, server, loginEmail, loginPassword)
		if err != nil {
			_ = m.LoginFailed()
			return err
		}
		if err := m.LoginSucceeded(session); err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s\n", session.Subject)
	} else if err := m.BrowseAsGuest(); err != nil {
		return err
	}

	if err := m.SelectPlan(planID); err != nil {
		return err
	}
	if err := m.ChooseMethod(domain.PaymentMethod(method)); err != nil {
		return err
	}

	body, err := checkoutBody(cmd, planID, domain.PaymentMethod(method))
	if err != nil {
		return err
	}
	if err := m.Submit(); err != nil {
		return err
	}

	result, err := postCheckout(ctx, server, body)
	if err != nil {
		result = &domain.CheckoutResult{Success: false, Error: domain.KindNetwork, Message: err.Error()}
	}
	outcome, err := m.Resolve(result, result.Error)
	if err != nil {
		return err
	}

	printResult(out, outcome, result)
	if outcome == flow.OutcomeDeclined || outcome == flow.OutcomeFailed || outcome == flow.OutcomeRetryable {
		return fmt.Errorf("checkout %s: %s", outcome, result.Message)
	}
	return nil
}

func checkoutBody(cmd *cobra.Command, planID string, method domain.PaymentMethod) ([]byte, error) {
	plan, ok := domain.FindPlan(planID)
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", planID)
	}
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	document, _ := cmd.Flags().GetString("document")
	installments, _ := cmd.Flags().GetInt("installments")

	docType := domain.DocumentCPF
	if len(checkout.Digits(document)) == 14 {
		docType = domain.DocumentCNPJ
	}

	req := map[string]any{
		"amount":        plan.Price,
		"paymentMethod": method,
		"installments":  installments,
		"metadata":      map[string]string{checkout.MetaPlanID: plan.ID},
		"customer": map[string]any{
			"name":  name,
			"email": email,
			"phone": phone,
			"document": map[string]string{
				"type":   string(docType),
				"number": checkout.Digits(document),
			},
		},
	}

	if method == domain.MethodCreditCard {
		token, _ := cmd.Flags().GetString("card-token")
		holder, _ := cmd.Flags().GetString("holder")
		month, _ := cmd.Flags().GetInt("exp-month")
		year, _ := cmd.Flags().GetInt("exp-year")
		if token == "" {
			return nil, fmt.Errorf("--card-token is required for credit_card")
		}
		req["card"] = map[string]any{
			"token":           token,
			"holderName":      holder,
			"expirationMonth": month,
			"expirationYear":  year,
		}
	}
	return json.Marshal(req)
}

func postCheckout(ctx context.Context, server string, body []byte) (*domain.CheckoutResult, error) {
	resp, err := postJSON(ctx, server+"/process-payment", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result domain.CheckoutResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode checkout response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &result, nil
}

func login(ctx context.Context, server, email, password string) (*domain.Session, error) {
	body, err := json.Marshal(domain.Credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := postJSON(ctx, server+"/auth/login", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed (HTTP %d)", resp.StatusCode)
	}
	var payload struct {
		Role      string    `json:"role"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &domain.Session{Subject: email, Role: payload.Role, ExpiresAt: payload.ExpiresAt}, nil
}

func postJSON(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return httpClient.Do(req)
}

func printResult(out io.Writer, outcome flow.Outcome, r *domain.CheckoutResult) {
	fmt.Fprintf(out, "outcome: %s\n", outcome)
	if r.TransactionID != "" {
		fmt.Fprintf(out, "transaction: %s (%s)\n", r.TransactionID, r.Status)
	}
	if r.Message != "" {
		fmt.Fprintf(out, "message: %s\n", r.Message)
	}
	if r.PixCode != "" {
		fmt.Fprintf(out, "pix code: %s\n", r.PixCode)
	}
	if r.BoletoURL != "" {
		fmt.Fprintf(out, "boleto: %s\n", r.BoletoURL)
	}
	if r.SecureURL != "" {
		fmt.Fprintf(out, "pay at: %s\n", r.SecureURL)
	}
}
