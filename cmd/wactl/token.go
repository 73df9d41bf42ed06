package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wa-marketing/backend/internal/auth"
	"github.com/wa-marketing/backend/internal/rbac"
	"github.com/wa-marketing/backend/internal/repositories"
)

var (
	tokenName string
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Create or update an operator and print an API token",
	Long: `Upserts the operator identified by email with the given role and
prints a signed bearer token for the HTTP API and the dashboard websocket.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name (defaults to the email local part)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", rbac.RoleAgent, "role: admin, manager or agent")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to JWT_EXPIRATION_HOURS)")
}

func runToken(cmd *cobra.Command, args []string) error {
	email := strings.ToLower(strings.TrimSpace(args[0]))
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", args[0])
	}
	if !rbac.IsValidRole(tokenRole) {
		return fmt.Errorf("invalid role %q", tokenRole)
	}
	name := tokenName
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	ctx := cmd.Context()
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := repositories.NewUserRepo(e.pool).UpsertByEmail(ctx, email, name, tokenRole)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = e.cfg.JWTExpiration
	}
	token, err := auth.GenerateJWT(e.cfg.JWTSecret, user.ID, user.Role, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "user %s (%s), expires in %s\n", user.ID, user.Role, ttl)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
