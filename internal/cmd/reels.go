package cmd

import (
	"time"

	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	reelTitle       string
	reelDescription string
	reelDuration    time.Duration
	reelSink        string
	reelNoTUI       bool

	reelPage       int
	reelPageSize   int
	reelHistPage   int
	reelHistSize   int
	reelBrowseSize int
	reelForce      bool
	reelLimit      int
)

var reelsCmd = &cobra.Command{
	Use:     "reels",
	Aliases: []string{"reel", "video"},
	Short:   "Short video commands",
	Long:    "Upload, browse and watch reels. Playback positions and view counts are kept in a local cache.",
}

var reelUploadCmd = &cobra.Command{
	Use:   "upload <video-file>",
	Short: "Upload a reel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.UploadVideo(cmd.Context(), service.VideoInput{
			Path:        args[0],
			Title:       reelTitle,
			Description: reelDescription,
			Duration:    reelDuration,
		}, service.UploadOptions{Sink: reelSink, NoTUI: reelNoTUI})
	},
}

var reelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reels, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.ListReels(cmd.Context(), reelPage, reelPageSize)
	},
}

var reelPlayCmd = &cobra.Command{
	Use:   "play <reel-id>",
	Short: "Start watching a reel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.Play(cmd.Context(), args[0])
	},
}

var reelSaveCmd = &cobra.Command{
	Use:   "save <reel-id> <position>",
	Short: "Save where you stopped watching",
	Long:  `Save a playback position given as seconds ("95"), a clock ("1:35") or a duration ("1m35s").`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := service.ParsePosition(args[1])
		if err != nil {
			return err
		}
		videoSvc := service.NewVideoService()
		return videoSvc.SaveProgress(cmd.Context(), args[0], pos)
	},
}

var reelBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Step through reels with the next ones preloaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.Browse(cmd.Context(), reelBrowseSize)
	},
}

var reelHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your watch history",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.WatchHistory(cmd.Context(), reelHistPage, reelHistSize)
	},
}

var reelClearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Delete your watch history",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.ClearHistory(cmd.Context(), reelForce)
	},
}

var reelCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the local playback cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.CacheList(cmd.Context(), reelLimit)
	},
}

var reelCachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict cache entries beyond the configured limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.CachePrune(cmd.Context())
	},
}

var reelCacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every saved position and local view count",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoSvc := service.NewVideoService()
		return videoSvc.CacheClear(cmd.Context())
	},
}

func init() {
	reelUploadCmd.Flags().StringVarP(&reelTitle, "title", "t", "", "Reel title")
	reelUploadCmd.Flags().StringVarP(&reelDescription, "description", "d", "", "Reel description")
	reelUploadCmd.Flags().DurationVar(&reelDuration, "duration", 0, "Video length, e.g. 45s")
	addUploadFlags(reelUploadCmd, &reelSink, &reelNoTUI)

	addPageFlags(reelListCmd, &reelPage, &reelPageSize, 10)
	addPageFlags(reelHistoryCmd, &reelHistPage, &reelHistSize, 20)
	reelBrowseCmd.Flags().IntVar(&reelBrowseSize, "page-size", 10, "Reels fetched per page")
	reelClearHistoryCmd.Flags().BoolVarP(&reelForce, "force", "f", false, "Skip confirmation")
	reelCacheCmd.Flags().IntVar(&reelLimit, "limit", 20, "Maximum entries to show")

	reelCacheCmd.AddCommand(reelCachePruneCmd)
	reelCacheCmd.AddCommand(reelCacheClearCmd)

	reelsCmd.AddCommand(reelUploadCmd)
	reelsCmd.AddCommand(reelListCmd)
	reelsCmd.AddCommand(reelPlayCmd)
	reelsCmd.AddCommand(reelSaveCmd)
	reelsCmd.AddCommand(reelBrowseCmd)
	reelsCmd.AddCommand(reelHistoryCmd)
	reelsCmd.AddCommand(reelClearHistoryCmd)
	reelsCmd.AddCommand(reelCacheCmd)
}
