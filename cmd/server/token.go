package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vedran77/careteam/internal/transport/http/middleware"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		sub := uuid.New()
		if tokenSubject != "" {
			if sub, err = uuid.Parse(tokenSubject); err != nil {
				return fmt.Errorf("--sub must be a uuid: %w", err)
			}
		}

		tok, err := middleware.IssueToken(cfg.Auth.JWTSecret, sub, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sub:   %s\ntoken: %s\n", sub, tok)
		return nil
	},
}
