package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/gateway"
	"go.uber.org/zap"
)

var phoneCmd = &cobra.Command{
	Use:   "phone-check <phone>",
	Short: "Ask the provider whether a number has a WhatsApp account",
	Args:  cobra.ExactArgs(1),
	RunE:  runPhoneCheck,
}

func init() {
	rootCmd.AddCommand(phoneCmd)
}

func runPhoneCheck(cmd *cobra.Command, args []string) error {
	phone := args[0]
	if err := validator.New().Var(phone, "required,e164"); err != nil {
		return fmt.Errorf("phone must be E.164, e.g. +24174000001")
	}

	cfg := config.Load()
	provider, err := gateway.New(cfg.Gateway, zap.NewNop())
	if err != nil {
		return err
	}
	checker, ok := provider.(gateway.PhoneChecker)
	if !ok {
		return fmt.Errorf("provider %s does not support number lookup", provider.Name())
	}

	res, err := checker.CheckPhoneNumber(cmd.Context(), phone)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
