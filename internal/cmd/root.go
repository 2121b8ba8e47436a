package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/config"
	clierrors "github.com/socialhub/socialhub-cli/pkg/errors"
	"github.com/socialhub/socialhub-cli/pkg/logger"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "socialhub",
	Short: "SocialHub CLI - your social network in the terminal",
	Long: `SocialHub CLI is a command-line client for the SocialHub social network.
Post updates, share stories and reels, chat with friends, and moderate
the community directly from the terminal.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		logger.Init(verbose)

		// the flag wins over output.format from the config file
		if cmd.Flags().Changed("output") {
			if !output.ValidateOutputFormat(outputFmt) {
				return clierrors.ValidationError("output", "must be text, json or table")
			}
			config.Set("output.format", outputFmt)
		}

		client.Init()
		return nil
	},
}

// Execute runs the root command. Ctrl-C cancels the command's context so
// uploads and watchers can stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Debug("Command failed", "error", err)
		fmt.Fprint(os.Stderr, clierrors.FormatError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/socialhub/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json, table")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(reactCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(reelsCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(friendCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// addPageFlags binds the usual pagination flags
func addPageFlags(cmd *cobra.Command, page, pageSize *int, defaultSize int) {
	cmd.Flags().IntVar(page, "page", 1, "Page number")
	cmd.Flags().IntVar(pageSize, "page-size", defaultSize, "Results per page")
}

// addUploadFlags binds the media upload flags
func addUploadFlags(cmd *cobra.Command, sink *string, noTUI *bool) {
	cmd.Flags().StringVar(sink, "sink", "", "Upload destination: http or s3 (default from upload.sink)")
	cmd.Flags().BoolVar(noTUI, "no-tui", false, "Print progress lines instead of the progress bar")
}
