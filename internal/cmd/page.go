package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	pageDescription string
	pageCategory    string
	pageListPage    int
	pageListSize    int
	pageViewSize    int
)

var pageCmd = &cobra.Command{
	Use:     "page",
	Aliases: []string{"pages"},
	Short:   "Page commands",
	Long:    "Create and follow public pages for brands, communities and creators",
}

var pageCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSvc := service.NewPageService()
		return pageSvc.CreatePage(cmd.Context(), args[0], pageDescription, pageCategory)
	},
}

var pageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSvc := service.NewPageService()
		return pageSvc.ListPages(cmd.Context(), pageCategory, pageListPage, pageListSize)
	},
}

var pageViewCmd = &cobra.Command{
	Use:   "view <page-id>",
	Short: "View a page and its latest posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSvc := service.NewPageService()
		return pageSvc.ViewPage(cmd.Context(), args[0], pageViewSize)
	},
}

var pageFollowCmd = &cobra.Command{
	Use:   "follow <page-id>",
	Short: "Follow a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSvc := service.NewPageService()
		return pageSvc.FollowPage(cmd.Context(), args[0])
	},
}

var pageUnfollowCmd = &cobra.Command{
	Use:   "unfollow <page-id>",
	Short: "Unfollow a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageSvc := service.NewPageService()
		return pageSvc.UnfollowPage(cmd.Context(), args[0])
	},
}

func init() {
	pageCreateCmd.Flags().StringVarP(&pageDescription, "description", "d", "", "What the page is about")
	pageCreateCmd.Flags().StringVar(&pageCategory, "category", "", "Page category")

	pageListCmd.Flags().StringVar(&pageCategory, "category", "", "Only pages in this category")
	addPageFlags(pageListCmd, &pageListPage, &pageListSize, 20)

	pageViewCmd.Flags().IntVar(&pageViewSize, "posts", 5, "Number of recent posts to show")

	pageCmd.AddCommand(pageCreateCmd)
	pageCmd.AddCommand(pageListCmd)
	pageCmd.AddCommand(pageViewCmd)
	pageCmd.AddCommand(pageFollowCmd)
	pageCmd.AddCommand(pageUnfollowCmd)
}
