package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
	"github.com/mastercomfig/tc2-launcher/internal/version"
)

// statusCmd prints the installed release and launcher version.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installed game version and launcher version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		installed, err := launcher.Installed(cmd.Context(), configPath)
		if err != nil {
			return err
		}

		color.White("Launcher %s", version.Full())

		if installed == nil {
			color.Yellow("No game release installed")
			return nil
		}

		color.Green("TC2 %s", installed.Version)
		color.White("  path:      %s", installed.Path)
		color.White("  installed: %s", installed.InstalledAt.Local().Format("2006-01-02 15:04:05"))

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
