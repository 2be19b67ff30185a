package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unifypy/unifypy/internal/service/prepare"
)

// appIDCmd prints the deterministic application identifier, generating and
// persisting one when the project has none yet.
var appIDCmd = &cobra.Command{
	Use:   "app-id [project-dir]",
	Short: "Print the application identifier used by the Windows installer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := prepare.AppID(cmd.Context(), optionsFromArgs(cmd, args))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(appIDCmd)
}
