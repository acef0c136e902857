package cli

import (
	"github.com/spf13/cobra"

	"github.com/fakturly/fakturly/internal/app"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the outbox relay worker",
	Long: `Drains the transactional outbox into the event bus. Run this as a
separate process when the API serves with OUTBOX_PROCESSOR_ENABLED=false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		publisher := container.NewEventPublisher()
		processor := container.NewOutboxProcessor(publisher)
		processor.Start(ctx)
		defer processor.Stop()

		logger.Info("outbox worker running")
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
