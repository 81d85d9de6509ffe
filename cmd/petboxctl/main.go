// petboxctl is the operator tool for the PetBox payments service.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/petbox/petbox-payments/internal/core/checkout"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "petboxctl",
		Short:         "petboxctl - PetBox payments operator tool",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(priceCmd())
	rootCmd.AddCommand(cpfCmd())
	rootCmd.AddCommand(cardCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(checkoutCmd())
	return rootCmd
}

func priceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price [amount]",
		Short: "Convert a BRL amount (\"R$ 1.234,56\") to cents, or cents back to BRL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if cents, err := strconv.ParseInt(args[0], 10, 64); err == nil {
				fmt.Fprintln(out, checkout.CentsToPrice(cents))
				return nil
			}
			cents, err := checkout.PriceToCents(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cents)
			return nil
		},
	}
}

func cpfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpf [document]",
		Short: "Validate and format a CPF or CNPJ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digits := checkout.Digits(args[0])
			var valid bool
			kind := "CPF"
			if len(digits) == 14 {
				kind = "CNPJ"
				valid = checkout.ValidCNPJ(digits)
			} else {
				valid = checkout.ValidCPF(digits)
			}
			if !valid {
				return fmt.Errorf("%s %s is invalid", kind, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is valid\n", kind, checkout.FormatDocument(digits))
			return nil
		},
	}
}

func cardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card [number]",
		Short: "Format a card number for display and check an expiration date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, checkout.FormatCardNumber(args[0]))

			month, _ := cmd.Flags().GetInt("exp-month")
			year, _ := cmd.Flags().GetInt("exp-year")
			if month == 0 && year == 0 {
				return nil
			}
			if !checkout.ValidExpiration(month, year, time.Now()) {
				return fmt.Errorf("expiration %02d/%d is invalid", month, year)
			}
			fmt.Fprintf(out, "expires %02d/%d\n", month, year)
			return nil
		},
	}

	cmd.Flags().Int("exp-month", 0, "Expiration month (1-12)")
	cmd.Flags().Int("exp-year", 0, "Expiration year (4 digits)")
	return cmd
}
