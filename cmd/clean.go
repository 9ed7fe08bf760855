package cmd

import (
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/utils"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	cleanForce  bool
	cleanDryRun bool
)

func resetCleanCommandState() {
	cleanForce = false
	cleanDryRun = false
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Removes encrypted files no environment uses",
	Long: `Removes .enc files in .vaultic/ that no environment in config.toml
claims. They are left behind when an environment is removed or renamed.

Use --dry-run to preview what would be removed.
Use --force to skip the confirmation prompt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clean command")
		out := cmd.OutOrStdout()

		preview, err := workflows.Clean(cmd.Context(), workflows.CleanOptions{Common: common(), DryRun: true})
		if err != nil {
			fmt.Fprintln(out, formatError(err))
			return &reportedError{err: err}
		}

		if len(preview.Orphans) == 0 {
			fmt.Fprintln(out, ui.SuccessLine("No orphaned files found. Nothing to clean."))
			return nil
		}

		if cleanDryRun {
			fmt.Fprintf(out, "[dry-run] Would remove %d orphaned file(s):%s\n", len(preview.Orphans), ui.Bullets(preview.Orphans))
			fmt.Fprintln(out, "\nNo changes made.")
			return nil
		}

		fmt.Fprintf(out, "Found %d orphaned file(s):%s\n\n", len(preview.Orphans), ui.Bullets(preview.Orphans))
		if !cleanForce {
			if !utils.IsTerminal() {
				return fmt.Errorf("refusing to delete without confirmation, pass --force")
			}
			ok, err := utils.Confirm(cmd.InOrStdin(), out, "Permanently delete these files?", false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		result, err := workflows.Clean(cmd.Context(), workflows.CleanOptions{Common: common()})
		if err != nil {
			fmt.Fprintln(out, formatError(err))
			return &reportedError{err: err}
		}
		fmt.Fprintln(out, ui.SuccessLine(fmt.Sprintf("Removed %d orphaned file(s)", result.RemovedCount)))
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without making changes")
}
