package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unifypy/unifypy/internal/service/prepare"
)

// statusCmd prints a summary of the project cache.
var statusCmd = &cobra.Command{
	Use:   "status [project-dir]",
	Short: "Show cached configuration files and metadata",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := prepare.Info(cmd.Context(), optionsFromArgs(cmd, args))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if !info.HasRootDir {
			fmt.Fprintln(out, "No cache directory yet, run unifypy-prepare first")

			return nil
		}

		fmt.Fprintf(out, "Cache directory: %s\n", info.CacheDir)

		if meta := info.Metadata; meta != nil {
			if meta.AppID != "" {
				fmt.Fprintf(out, "Application identifier: %s\n", meta.AppID)
			}

			if meta.ConfigHash != "" {
				fmt.Fprintf(out, "Configuration fingerprint: %s\n", meta.ConfigHash)
			}

			if meta.LastUpdated != "" {
				fmt.Fprintf(out, "Last updated: %s\n", meta.LastUpdated)
			}
		}

		fmt.Fprintf(out, "Cached files: %d (%d bytes)\n", len(info.Files), info.TotalSize)

		for _, file := range info.Files {
			fmt.Fprintf(out, "  %s (%d bytes)\n", file.Path, file.Size)
		}

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(statusCmd)
}
