package main

import (
	"fmt"

	"github.com/spf13/cobra"

	jwttoken "nameledger/internal/jwt_token"
	id "nameledger/pkg/domain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for an identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("identity")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		identity, err := id.ParseIdentity(raw)
		if err != nil {
			return err
		}
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		if cfg.UsesDevSigningKey() {
			log.Warn("minting token with the development signing key")
		}

		token, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer).GenerateToken(identity, ttl)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
