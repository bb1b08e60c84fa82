package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tenantlink/internal/common"
	"tenantlink/internal/config"
)

// tokenCmd mints a bearer token for local testing; production tokens come
// from the auth service.
func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			r, err := common.ParseRole(role)
			if err != nil {
				return err
			}
			token, err := common.GenerateToken([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, userID, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID to embed")
	cmd.Flags().StringVar(&role, "role", string(common.RoleTenant), "tenant, landlord, facilitator or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
