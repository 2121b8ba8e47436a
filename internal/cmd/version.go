package cmd

import (
	"runtime"

	"github.com/socialhub/socialhub-cli/pkg/formatter"
	"github.com/socialhub/socialhub-cli/pkg/output"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X .../internal/cmd.Version=..."
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if output.IsJSON() {
			return output.Print("", map[string]string{
				"version": Version,
				"go":      runtime.Version(),
				"os":      runtime.GOOS + "/" + runtime.GOARCH,
			})
		}
		formatter.Printf("socialhub v%s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}
