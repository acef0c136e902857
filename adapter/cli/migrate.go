package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakturly/fakturly/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		if err := container.RunMigrations(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		logger.Info("migrations applied", "driver", container.DBDriver.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
