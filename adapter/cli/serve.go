package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakturly/fakturly/adapter/api"
	"github.com/fakturly/fakturly/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the Fakturly API server. Migrations run on startup; the
embedded outbox processor relays domain events unless disabled, so a
single process serves the whole application in development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		if err := container.RunMigrations(ctx); err != nil {
			return err
		}

		if cfg.OutboxProcessorEnabled {
			publisher := container.NewEventPublisher()
			processor := container.NewOutboxProcessor(publisher)
			processor.Start(ctx)
			defer processor.Stop()
		}

		serverCfg := api.DefaultServerConfig()
		serverCfg.Addr = cfg.HTTPAddr
		server := api.NewServer(serverCfg, container.APIHandlers(), container.Health, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
