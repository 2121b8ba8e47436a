package cmd

import (
	"github.com/socialhub/socialhub-cli/pkg/service"
	"github.com/spf13/cobra"
)

var (
	uploadSink  string
	uploadNoTUI bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file to media storage",
	Long: `Upload a file in adaptive chunks and print its public URL.

Chunk size grows or shrinks with measured throughput. Failed chunks are
retried with backoff and a partial upload is discarded on failure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uploadSvc := service.NewUploadService()
		return uploadSvc.UploadFile(cmd.Context(), args[0], service.UploadOptions{Sink: uploadSink, NoTUI: uploadNoTUI})
	},
}

func init() {
	addUploadFlags(uploadCmd, &uploadSink, &uploadNoTUI)
}
