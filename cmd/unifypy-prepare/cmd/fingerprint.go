package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unifypy/unifypy/internal/service/prepare"
)

// fingerprintCmd prints the current configuration fingerprint, useful for
// diffing cache state in CI. The persistent --platform flag selects a
// platform fingerprint instead of the global one.
var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint [project-dir]",
	Short: "Print the configuration fingerprint",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFromArgs(cmd, args)

		// The persistent flag names the fingerprint to print here, not a
		// detection override.
		opts.Platform = ""

		hash, err := prepare.Fingerprint(cmd.Context(), opts, platform)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), hash)

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(fingerprintCmd)
}
