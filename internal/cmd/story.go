package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	storyCaption string
	storySink    string
	storyNoTUI   bool
	storyLimit   int
	storyForce   bool
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Story commands",
	Long:  "Share photos and clips that disappear after 24 hours",
}

var storyCreateCmd = &cobra.Command{
	Use:   "create <media-file>",
	Short: "Share a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storySvc := service.NewStoryService()
		return storySvc.CreateStory(cmd.Context(), args[0], storyCaption, service.UploadOptions{Sink: storySink, NoTUI: storyNoTUI})
	},
}

var storyListCmd = &cobra.Command{
	Use:   "list [username]",
	Short: "List active stories, or one user's stories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storySvc := service.NewStoryService()
		if len(args) == 1 {
			return storySvc.ListUserStories(cmd.Context(), args[0])
		}
		return storySvc.ListStories(cmd.Context(), storyLimit)
	},
}

var storyViewCmd = &cobra.Command{
	Use:   "view <story-id>",
	Short: "View a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storySvc := service.NewStoryService()
		return storySvc.ViewStory(cmd.Context(), args[0])
	},
}

var storyViewersCmd = &cobra.Command{
	Use:   "viewers <story-id>",
	Short: "See who viewed your story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storySvc := service.NewStoryService()
		return storySvc.ListViewers(cmd.Context(), args[0])
	},
}

var storyDeleteCmd = &cobra.Command{
	Use:   "delete <story-id>",
	Short: "Delete your story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storySvc := service.NewStoryService()
		return storySvc.DeleteStory(cmd.Context(), args[0], storyForce)
	},
}

func init() {
	storyCreateCmd.Flags().StringVar(&storyCaption, "caption", "", "Caption shown over the story")
	addUploadFlags(storyCreateCmd, &storySink, &storyNoTUI)

	storyListCmd.Flags().IntVar(&storyLimit, "limit", 50, "Maximum stories to list")
	storyDeleteCmd.Flags().BoolVarP(&storyForce, "force", "f", false, "Skip confirmation")

	storyCmd.AddCommand(storyCreateCmd)
	storyCmd.AddCommand(storyListCmd)
	storyCmd.AddCommand(storyViewCmd)
	storyCmd.AddCommand(storyViewersCmd)
	storyCmd.AddCommand(storyDeleteCmd)
}
