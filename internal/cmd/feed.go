package cmd

import (
	"time"

	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	feedPage     int
	feedPageSize int
	feedSince    time.Duration
	feedLimit    int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "View your home feed",
	Long:  "View the newest posts from the community, or only those since a given time",
	RunE: func(cmd *cobra.Command, args []string) error {
		feedSvc := service.NewFeedService()
		if feedSince > 0 {
			return feedSvc.ViewSince(cmd.Context(), feedSince, feedLimit)
		}
		return feedSvc.ViewFeed(cmd.Context(), feedPage, feedPageSize)
	},
}

func init() {
	addPageFlags(feedCmd, &feedPage, &feedPageSize, 10)
	feedCmd.Flags().DurationVar(&feedSince, "since", 0, "Only posts newer than this, e.g. 2h")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 50, "Maximum posts with --since")
}
