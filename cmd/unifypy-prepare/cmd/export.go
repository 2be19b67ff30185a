package cmd

import (
	"github.com/spf13/cobra"

	"github.com/unifypy/unifypy/internal/service/prepare"
)

// exportOut is the destination file for the merged configuration.
var exportOut string

// exportCmd writes the fully merged configuration (defaults, file layers
// and overrides flattened) to a JSON file, for debugging and for handing
// to external tools.
var exportCmd = &cobra.Command{
	Use:   "export [project-dir]",
	Short: "Export the merged configuration as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return prepare.Export(cmd.Context(), optionsFromArgs(cmd, args), exportOut)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "merged-config.json", "output file path")
	rootCmd.AddCommand(exportCmd)
}
