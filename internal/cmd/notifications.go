package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	notifPage     int
	notifPageSize int
	notifUnread   bool
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Notification commands",
	Long:    "View and manage notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		notifService := service.NewNotificationService()
		return notifService.ListNotifications(cmd.Context(), notifUnread, notifPage, notifPageSize)
	},
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for real-time notifications",
	Long:  "Stream notifications over the realtime socket until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		notifService := service.NewNotificationService()
		return notifService.Watch(cmd.Context())
	},
}

var notificationsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show unread notification count",
	RunE: func(cmd *cobra.Command, args []string) error {
		notifService := service.NewNotificationService()
		return notifService.UnreadCount(cmd.Context())
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notifService := service.NewNotificationService()
		return notifService.MarkRead(cmd.Context(), args[0])
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark all notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		notifService := service.NewNotificationService()
		return notifService.MarkAllRead(cmd.Context())
	},
}

var notificationsDeleteCmd = &cobra.Command{
	Use:   "delete <notification-id>",
	Short: "Delete a notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notifService := service.NewNotificationService()
		return notifService.Delete(cmd.Context(), args[0])
	},
}

func init() {
	notificationsListCmd.Flags().BoolVarP(&notifUnread, "unread", "u", false, "Only unread notifications")
	addPageFlags(notificationsListCmd, &notifPage, &notifPageSize, 20)

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsCountCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsReadAllCmd)
	notificationsCmd.AddCommand(notificationsDeleteCmd)
	notificationsCmd.AddCommand(notificationsWatchCmd)
}
