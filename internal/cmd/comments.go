package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	commentReplyTo  string
	commentPage     int
	commentPageSize int
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Comment commands",
	Long:  "Add, list and delete comments on posts",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <post-id> [text]",
	Short: "Comment on a post",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := ""
		if len(args) == 2 {
			content = args[1]
		}
		commentSvc := service.NewCommentService()
		return commentSvc.AddComment(cmd.Context(), args[0], content, commentReplyTo)
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <post-id>",
	Short: "List comments on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentSvc := service.NewCommentService()
		return commentSvc.ListComments(cmd.Context(), args[0], commentPage, commentPageSize)
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <comment-id>",
	Short: "Delete your comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		commentSvc := service.NewCommentService()
		return commentSvc.DeleteComment(cmd.Context(), args[0])
	},
}

func init() {
	commentAddCmd.Flags().StringVar(&commentReplyTo, "reply-to", "", "Reply to this comment id")
	addPageFlags(commentListCmd, &commentPage, &commentPageSize, 20)

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentDeleteCmd)
}
