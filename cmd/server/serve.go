package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NicholasJacob1990/iudex0-sub012/internal/infrastructure/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket bridge and HTTP endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := server.NewServer(ctx, cfg, logger)
			if err != nil {
				logger.Error("Failed to create server", zap.Error(err))
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Run(ctx) }()

			var runErr error
			select {
			case <-ctx.Done():
				logger.Info("Shutting down gracefully...")
			case runErr = <-errCh:
				if runErr != nil {
					logger.Error("Server error", zap.Error(runErr))
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Close(shutdownCtx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "server port (overrides PORT)")
	return cmd
}
