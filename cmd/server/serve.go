package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/chatverse/internal/auth"
	"github.com/Tyrowin/chatverse/internal/server"
	"github.com/Tyrowin/chatverse/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port            string
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := server.NewConfigFromEnv()
			if err != nil {
				return configError{err: err}
			}
			if port != "" {
				cfg.Port = port
			}

			log := logs.GetLoggerFromString(cfg.LogLevel)
			if cfg.JWTSecret == "fallback_secret" {
				log.Warn("JWT_SECRET is not set, using the development fallback secret")
			}

			st, err := store.Open(cfg.BadgerPath, log)
			if err != nil {
				return err
			}
			defer func() {
				log.Info("Closing BadgerDB...")
				_ = st.Close()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(log, cfg, auth.NewVerifier(cfg.JWTSecret), st)
			return srv.Run(ctx, shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen address, overrides SERVER_PORT (e.g. :8080)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown deadline")
	return cmd
}
