package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/service/selfupdate"
)

// selfUpdateCmd replaces the running launcher binary with the newest release.
var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Update the launcher itself",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		options := &selfupdate.Options{
			ConfigPath: configPath,
			Channel:    channel,
			Progress:   newDownloadProgress("downloading launcher"),
		}

		return selfupdate.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(selfUpdateCmd)
}
