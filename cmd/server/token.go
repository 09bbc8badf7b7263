package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/chatverse/internal/auth"
	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/Tyrowin/chatverse/internal/server"
)

func newTokenCmd() *cobra.Command {
	var (
		user   string
		ttl    time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for a user, for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				cfg, err := server.NewConfigFromEnv()
				if err != nil {
					return configError{err: err}
				}
				secret = cfg.JWTSecret
			}

			token, err := auth.NewVerifier(secret).Issue(presence.UserID(user), ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret, defaults to JWT_SECRET")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
