package cmd

import (
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	searchType  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search people, posts, groups and pages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		searchService := service.NewSearchService()
		return searchService.Search(cmd.Context(), strings.Join(args, " "), searchType, searchLimit)
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchType, "type", "t", service.SearchAll, "What to search: all, users or posts")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "Maximum results per section")
}
