package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	friendPage     int
	friendPageSize int
	friendForce    bool
)

var friendCmd = &cobra.Command{
	Use:     "friend",
	Aliases: []string{"friends"},
	Short:   "Friend commands",
	Long:    "Send, accept and manage friend requests",
}

var friendAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Send a friend request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		friendSvc := service.NewFriendService()
		return friendSvc.SendRequest(cmd.Context(), args[0])
	},
}

var friendAcceptCmd = &cobra.Command{
	Use:   "accept <request-id>",
	Short: "Accept a friend request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		friendSvc := service.NewFriendService()
		return friendSvc.Respond(cmd.Context(), args[0], true)
	},
}

var friendDeclineCmd = &cobra.Command{
	Use:   "decline <request-id>",
	Short: "Decline a friend request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		friendSvc := service.NewFriendService()
		return friendSvc.Respond(cmd.Context(), args[0], false)
	},
}

var friendListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your friends",
	RunE: func(cmd *cobra.Command, args []string) error {
		friendSvc := service.NewFriendService()
		return friendSvc.ListFriends(cmd.Context(), friendPage, friendPageSize)
	},
}

var friendRequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Show incoming and sent friend requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		friendSvc := service.NewFriendService()
		return friendSvc.ListRequests(cmd.Context())
	},
}

var friendRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Unfriend someone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		friendSvc := service.NewFriendService()
		return friendSvc.Unfriend(cmd.Context(), args[0], friendForce)
	},
}

func init() {
	addPageFlags(friendListCmd, &friendPage, &friendPageSize, 50)
	friendRemoveCmd.Flags().BoolVarP(&friendForce, "force", "f", false, "Skip confirmation")

	friendCmd.AddCommand(friendAddCmd)
	friendCmd.AddCommand(friendAcceptCmd)
	friendCmd.AddCommand(friendDeclineCmd)
	friendCmd.AddCommand(friendListCmd)
	friendCmd.AddCommand(friendRequestsCmd)
	friendCmd.AddCommand(friendRemoveCmd)
}
