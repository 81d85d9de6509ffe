package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/petbox/petbox-payments/internal/adapters/furiapay"
	"github.com/petbox/petbox-payments/internal/core/checkout"
	"github.com/petbox/petbox-payments/internal/core/domain"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Work with gateway webhooks",
	}
	cmd.AddCommand(webhookSendCmd())
	return cmd
}

func webhookSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [event] [transaction-id]",
		Short: "Send a (optionally signed) webhook event to the service",
		Long: `Send a gateway webhook event, e.g.

  petboxctl webhook send transaction.paid tx_123 --email ana@example.com --plan premium`,
		Args: cobra.ExactArgs(2),
		RunE: runWebhookSend,
	}

	cmd.Flags().String("server", "http://localhost:8080", "Service base URL")
	cmd.Flags().String("secret", "", "Webhook secret used to sign the body (FURIA_WEBHOOK_SECRET)")
	cmd.Flags().String("method", string(domain.MethodPix), "Payment method of the transaction")
	cmd.Flags().String("email", "cliente@example.com", "Customer email")
	cmd.Flags().String("plan", "premium", "Plan id stored in the transaction metadata")
	cmd.Flags().String("reason", "", "Refuse reason for transaction.refused")
	return cmd
}

func runWebhookSend(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	secret, _ := cmd.Flags().GetString("secret")
	method, _ := cmd.Flags().GetString("method")
	email, _ := cmd.Flags().GetString("email")
	planID, _ := cmd.Flags().GetString("plan")
	reason, _ := cmd.Flags().GetString("reason")

	amount := int64(0)
	if plan, ok := domain.FindPlan(planID); ok {
		if cents, err := checkout.PriceToCents(plan.Price); err == nil {
			amount = cents
		}
	}

	status, _ := domain.StatusForEvent(args[0])
	event := domain.WebhookEvent{
		Event: args[0],
		Transaction: domain.GatewayTransaction{
			ID:            args[1],
			Status:        status,
			Amount:        amount,
			PaymentMethod: domain.PaymentMethod(method),
			Customer:      domain.Customer{Email: email},
			Metadata:      map[string]any{checkout.MetaPlanID: planID},
			RefuseReason:  reason,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, server+"/webhook", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(furiapay.SignatureHeader, "sha256="+furiapay.Sign(body, secret))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, bytes.TrimSpace(respBody))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook not acknowledged (HTTP %d)", resp.StatusCode)
	}
	return nil
}
