package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	messagePage       int
	messagePageSize   int
	messageThreadPage int
	messageThreadSize int
)

var messageCmd = &cobra.Command{
	Use:     "message",
	Aliases: []string{"msg", "dm"},
	Short:   "Direct message commands",
	Long:    "Send and read direct messages",
}

var messageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		msgSvc := service.NewMessagingService()
		return msgSvc.ListConversations(cmd.Context(), messagePage, messagePageSize)
	},
}

var messageSendCmd = &cobra.Command{
	Use:   "send <username> [text]",
	Short: "Send a direct message",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := ""
		if len(args) == 2 {
			content = args[1]
		}
		msgSvc := service.NewMessagingService()
		return msgSvc.SendMessage(cmd.Context(), args[0], content)
	},
}

var messageReadCmd = &cobra.Command{
	Use:   "read <username>",
	Short: "Read your conversation with a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgSvc := service.NewMessagingService()
		return msgSvc.ViewThread(cmd.Context(), args[0], messageThreadPage, messageThreadSize)
	},
}

var messageDeleteCmd = &cobra.Command{
	Use:   "delete <message-id>",
	Short: "Delete one of your messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgSvc := service.NewMessagingService()
		return msgSvc.DeleteMessage(cmd.Context(), args[0])
	},
}

var messageWatchCmd = &cobra.Command{
	Use:   "watch <username>",
	Short: "Print new messages from a conversation as they arrive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgSvc := service.NewMessagingService()
		return msgSvc.WatchConversation(cmd.Context(), args[0])
	},
}

func init() {
	addPageFlags(messageListCmd, &messagePage, &messagePageSize, 20)
	addPageFlags(messageReadCmd, &messageThreadPage, &messageThreadSize, 30)

	messageCmd.AddCommand(messageListCmd)
	messageCmd.AddCommand(messageSendCmd)
	messageCmd.AddCommand(messageReadCmd)
	messageCmd.AddCommand(messageDeleteCmd)
	messageCmd.AddCommand(messageWatchCmd)
}
