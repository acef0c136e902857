package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fakturly/fakturly/internal/app"
	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	identityDomain "github.com/fakturly/fakturly/internal/identity/domain"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator commands",
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print platform statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		stats, err := container.AdminService.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("users:     %d (%d premium, %d free)\n", stats.TotalUsers, stats.PremiumUsers, stats.FreeUsers)
		fmt.Printf("active:    %d in the last 30 days\n", stats.ActiveUsers)
		fmt.Printf("invoices:  %d\n", stats.TotalInvoices)
		fmt.Printf("revenue:   %s\n", stats.Revenue.StringFixed(2))
		return nil
	},
}

var adminUsersCmd = &cobra.Command{
	Use:   "users [query]",
	Short: "Search user accounts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		plan, _ := cmd.Flags().GetString("plan")

		users, total, err := container.AdminService.SearchUsers(ctx, identityDomain.UserSearchFilter{
			Query: query,
			Plan:  plan,
			Limit: 50,
		})
		if err != nil {
			return err
		}

		for _, user := range users {
			fmt.Printf("%s  %-30s  %-7s  %s\n", user.ID(), user.Email(), user.Plan(), user.Name())
		}
		fmt.Printf("%d of %d users\n", len(users), total)
		return nil
	},
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant-premium <user-id>",
	Short: "Manually grant a user one year of premium",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return overridePlan(cmd, args[0], billingDomain.PlanPremium) },
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke-premium <user-id>",
	Short: "Move a user back to the free plan",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return overridePlan(cmd, args[0], billingDomain.PlanFree) },
}

func overridePlan(cmd *cobra.Command, rawID string, plan billingDomain.Plan) error {
	ctx := cmd.Context()

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid user id %q", rawID)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	user, err := container.AdminService.OverridePlan(ctx, userID, plan)
	if err != nil {
		return err
	}

	if expiry := user.SubscriptionExpiresAt(); expiry != nil {
		fmt.Printf("%s is now %s until %s\n", user.Email(), user.Plan(), expiry.Format("2006-01-02"))
	} else {
		fmt.Printf("%s is now %s\n", user.Email(), user.Plan())
	}
	return nil
}

func init() {
	adminUsersCmd.Flags().String("plan", "", "filter by plan (free or premium)")
	adminCmd.AddCommand(adminStatsCmd, adminUsersCmd, adminGrantCmd, adminRevokeCmd)
	rootCmd.AddCommand(adminCmd)
}
