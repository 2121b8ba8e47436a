package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	reportReason  string
	reportDetails string
)

var reportCmd = &cobra.Command{
	Use:   "report <post|comment|user> <id-or-username>",
	Short: "Report content or a user to the moderators",
	Long: `Report a post, comment or user.

Without --reason you are asked to pick one interactively.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportService := service.NewReportService()
		return reportService.Report(cmd.Context(), args[0], args[1], reportReason, reportDetails)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportReason, "reason", "r", "", "Why you are reporting, e.g. spam or harassment")
	reportCmd.Flags().StringVarP(&reportDetails, "details", "d", "", "Extra context for the moderators")
}
