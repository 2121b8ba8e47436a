package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	adminBanned     bool
	adminForce      bool
	adminStatus     string
	adminDismiss    bool
	adminRemove     bool
	adminUserPage   int
	adminUserSize   int
	adminReportPage int
	adminReportSize int
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Moderation commands",
	Long:  "Moderate users, posts and reports. Requires an admin account.",
}

var adminDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show site statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.Dashboard(cmd.Context())
	},
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.ListUsers(cmd.Context(), adminBanned, adminUserPage, adminUserSize)
	},
}

var adminBanCmd = &cobra.Command{
	Use:   "ban <username>",
	Short: "Ban a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.SetBanned(cmd.Context(), args[0], true)
	},
}

var adminUnbanCmd = &cobra.Command{
	Use:   "unban <username>",
	Short: "Lift a ban",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.SetBanned(cmd.Context(), args[0], false)
	},
}

var adminDeletePostCmd = &cobra.Command{
	Use:   "delete-post <post-id>",
	Short: "Remove any post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.DeletePost(cmd.Context(), args[0], adminForce)
	},
}

var adminReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.ListReports(cmd.Context(), adminStatus, adminReportPage, adminReportSize)
	},
}

var adminResolveCmd = &cobra.Command{
	Use:   "resolve <report-id>",
	Short: "Resolve or dismiss a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adminSvc := service.NewAdminService()
		return adminSvc.ResolveReport(cmd.Context(), args[0], adminDismiss, adminRemove)
	},
}

func init() {
	adminUsersCmd.Flags().BoolVar(&adminBanned, "banned", false, "Only banned users")
	addPageFlags(adminUsersCmd, &adminUserPage, &adminUserSize, 25)

	adminDeletePostCmd.Flags().BoolVarP(&adminForce, "force", "f", false, "Skip confirmation")

	adminReportsCmd.Flags().StringVar(&adminStatus, "status", "pending", "pending, resolved, dismissed or all")
	addPageFlags(adminReportsCmd, &adminReportPage, &adminReportSize, 25)

	adminResolveCmd.Flags().BoolVar(&adminDismiss, "dismiss", false, "Dismiss instead of resolving")
	adminResolveCmd.Flags().BoolVar(&adminRemove, "remove", false, "Also delete the reported post")
	adminResolveCmd.MarkFlagsMutuallyExclusive("dismiss", "remove")

	adminCmd.AddCommand(adminDashboardCmd)
	adminCmd.AddCommand(adminUsersCmd)
	adminCmd.AddCommand(adminBanCmd)
	adminCmd.AddCommand(adminUnbanCmd)
	adminCmd.AddCommand(adminDeletePostCmd)
	adminCmd.AddCommand(adminReportsCmd)
	adminCmd.AddCommand(adminResolveCmd)
}
