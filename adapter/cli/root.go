// Package cli provides the fakturly command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakturly/fakturly/pkg/config"
	"github.com/fakturly/fakturly/pkg/observability"
)

var (
	verbose bool
	logger  *slog.Logger
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fakturly",
	Short: "Fakturly - invoicing backend for Indonesian freelancers and SMEs",
	Long: `Fakturly is the backend for an invoicing SaaS: invoices with
automatic numbering and totals, seller and customer address books,
free-plan quotas, and premium upgrades through a payment gateway.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded

		logCfg := observability.DefaultLogConfig()
		if cfg.IsProduction() {
			logCfg = observability.ProductionLogConfig()
		}
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
		if verbose {
			logCfg.Level = observability.LogLevelDebug
		}
		logger = observability.NewLogger(logCfg)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ExecuteContext(context.Background())
}

// ExecuteContext runs the root command under the given context so signal
// cancellation reaches long-running subcommands.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
