package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	postContent string
	postMedia   string
	postGroup   string
	postPage    string
	postPrivacy string
	postSink    string
	postNoTUI   bool
	postForce   bool
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post commands",
	Long:  "Create, view, edit and delete posts",
}

var postCreateCmd = &cobra.Command{
	Use:   "create [content]",
	Short: "Publish a post",
	Long: `Publish a post with text, an image or a video. Media is uploaded in
adaptive chunks before the post is created. Without content or media the
text is prompted for.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := postContent
		if len(args) == 1 {
			content = args[0]
		}
		postSvc := service.NewPostService()
		return postSvc.CreatePost(cmd.Context(), service.PostInput{
			Content:   content,
			MediaPath: postMedia,
			GroupID:   postGroup,
			PageID:    postPage,
			Privacy:   postPrivacy,
		}, service.UploadOptions{Sink: postSink, NoTUI: postNoTUI})
	},
}

var postViewCmd = &cobra.Command{
	Use:   "view <post-id>",
	Short: "View a post with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postSvc := service.NewPostService()
		return postSvc.ViewPost(cmd.Context(), args[0])
	},
}

var postEditCmd = &cobra.Command{
	Use:   "edit <post-id> [content]",
	Short: "Edit the text of your post",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := ""
		if len(args) == 2 {
			content = args[1]
		}
		postSvc := service.NewPostService()
		return postSvc.EditPost(cmd.Context(), args[0], content)
	},
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete your post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		postSvc := service.NewPostService()
		return postSvc.DeletePost(cmd.Context(), args[0], postForce)
	},
}

func init() {
	postCreateCmd.Flags().StringVarP(&postContent, "content", "c", "", "Post text")
	postCreateCmd.Flags().StringVarP(&postMedia, "media", "m", "", "Image or video file to attach")
	postCreateCmd.Flags().StringVar(&postGroup, "group", "", "Post inside a group you belong to")
	postCreateCmd.Flags().StringVar(&postPage, "page", "", "Post as a page you own")
	postCreateCmd.Flags().StringVar(&postPrivacy, "privacy", service.PrivacyPublic, "Audience: public, friends, only_me")
	addUploadFlags(postCreateCmd, &postSink, &postNoTUI)

	postDeleteCmd.Flags().BoolVarP(&postForce, "force", "f", false, "Skip confirmation")

	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postViewCmd)
	postCmd.AddCommand(postEditCmd)
	postCmd.AddCommand(postDeleteCmd)
}
