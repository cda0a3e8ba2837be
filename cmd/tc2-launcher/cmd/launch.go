package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
)

// launchCmd starts the installed game without a remote update check.
var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch the installed game without checking for updates",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		sink := newConsoleSink()

		options := &launcher.Options{
			ConfigPath: configPath,
			SkipUpdate: true,
			LaunchArgs: launchArgs,
			Events:     sink.handle,
		}

		return launcher.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(launchCmd)
}
