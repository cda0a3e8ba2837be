package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
)

// checkCmd reports update availability without changing anything.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for a game update without installing it",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		sink := newConsoleSink()

		options := &launcher.Options{
			ConfigPath:   configPath,
			Channel:      channel,
			CheckOnly:    true,
			StrictUpdate: true,
			Events:       sink.handle,
		}

		return launcher.Run(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(checkCmd)
}
