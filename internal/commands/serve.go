package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/schoolhub/internal/server"
)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Start the HTTP server. The API is served under /api/{module}/{function},
with /healthz, the metrics endpoint and optional static files alongside.
SIGINT or SIGTERM triggers a graceful shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.OutOrStdout(), cfg)
			logger.Info("Starting schoolhub",
				slog.Int("port", cfg.Server.Port),
				slog.String("database", cfg.Database.Type),
				slog.String("log_level", cfg.Logging.Level),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			handler, err := a.handler()
			if err != nil {
				return err
			}
			return server.Run(ctx, server.New(cfg.Server, handler), cfg.Server.ShutdownTimeout, logger)
		},
	}
}
