package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/logger"
	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
	"github.com/mastercomfig/tc2-launcher/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// channel overrides the configured release channel.
	channel string
	// logLevel for diagnostic output.
	logLevel string
	// launchArgs are extra arguments passed to the game.
	launchArgs []string

	// rootCmd keeps the game current and launches it.
	rootCmd = &cobra.Command{
		Use:   "tc2-launcher",
		Short: "Download, update and launch TC2.",
		Long: `Checks the release repository for a newer TC2 build, downloads and
verifies it when one is available, then launches the game and waits for it
to exit. When the update check fails and a build is already installed, that
build is launched instead.`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			sink := newConsoleSink()

			options := &launcher.Options{
				ConfigPath: configPath,
				Channel:    channel,
				LaunchArgs: launchArgs,
				Events:     sink.handle,
			}

			return launcher.Run(ctx, options)
		},
	}
)

// Execute runs the tc2-launcher CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext cancels on the usual termination signals so a running game
// gets its shutdown grace period.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "path to settings file (default: per-user data directory)")
	rootCmd.PersistentFlags().
		StringVar(&channel, "channel", "", `release channel: empty for stable, "prerelease", or a pinned tag`)
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().
		StringArrayVar(&launchArgs, "arg", nil, "extra argument passed to the game (repeatable)")
}
