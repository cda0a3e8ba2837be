package cmd

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mastercomfig/tc2-launcher/internal/service/launcher"
)

var (
	// assumeYes confirms the uninstall non-interactively.
	assumeYes bool
	// purgeSettings additionally removes the settings file.
	purgeSettings bool

	// errNotConfirmed is returned when --yes is missing.
	errNotConfirmed = errors.New("uninstall requires --yes")

	// uninstallCmd removes the installed game and recorded state.
	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the installed game and its recorded state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !assumeYes {
				return errNotConfirmed
			}

			if err := launcher.Uninstall(cmd.Context(), configPath, !purgeSettings); err != nil {
				return err
			}

			color.Green("TC2 uninstalled")

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	uninstallCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "confirm removal")
	uninstallCmd.Flags().BoolVar(&purgeSettings, "purge", false, "also remove the settings file")

	rootCmd.AddCommand(uninstallCmd)
}
