package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
)

// installCmd installs an available update but does not launch the game.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and install the newest game release",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		sink := newConsoleSink()

		options := &launcher.Options{
			ConfigPath:   configPath,
			Channel:      channel,
			InstallOnly:  true,
			StrictUpdate: true,
			Events:       sink.handle,
		}

		return launcher.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(installCmd)
}
