package cmd

import (
	"github.com/spf13/cobra"

	"github.com/unifypy/unifypy/internal/service/prepare"
)

// clearFull also drops the persisted application identifier.
var clearFull bool

// clearCmd wipes cached configuration files. The persistent --platform flag
// narrows the clear to one platform.
var clearCmd = &cobra.Command{
	Use:   "clear [project-dir]",
	Short: "Remove cached configuration files",
	Long: `Removes cached platform configuration files and resets the stored
fingerprints so the next run regenerates everything. Use --platform to clear
a single platform. The application identifier survives unless --full is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return prepare.Clear(cmd.Context(), optionsFromArgs(cmd, args), platform, clearFull)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	clearCmd.Flags().BoolVar(&clearFull, "full", false, "also drop the persisted application identifier")
	rootCmd.AddCommand(clearCmd)
}
