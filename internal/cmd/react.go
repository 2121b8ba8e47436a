package cmd

import (
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/api"
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var reactCmd = &cobra.Command{
	Use:   "react <post-id> [reaction]",
	Short: "React to a post",
	Long:  "React to a post with one of: " + strings.Join(api.ReactionTypes, ", ") + ". Defaults to like.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reaction := ""
		if len(args) == 2 {
			reaction = args[1]
		}
		reactionSvc := service.NewReactionService()
		return reactionSvc.React(cmd.Context(), args[0], reaction)
	},
}

var unreactCmd = &cobra.Command{
	Use:   "remove <post-id>",
	Short: "Remove your reaction from a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reactionSvc := service.NewReactionService()
		return reactionSvc.Unreact(cmd.Context(), args[0])
	},
}

var reactionsListCmd = &cobra.Command{
	Use:   "list <post-id>",
	Short: "Show reaction counts on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reactionSvc := service.NewReactionService()
		return reactionSvc.ShowReactions(cmd.Context(), args[0])
	},
}

func init() {
	reactCmd.AddCommand(unreactCmd)
	reactCmd.AddCommand(reactionsListCmd)
}
