package cmd

import (
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/drift"
	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	diffEnvs []string
	diffKey  string
)

func resetDiffCommandState() {
	diffEnvs = nil
	diffKey = ""
}

var diffCmd = &cobra.Command{
	Use:   "diff [file1] [file2]",
	Short: "Shows which variables differ between two files or environments",
	Long: `Compares two plaintext env files, or two environments when --env is given
twice. Environments are resolved with inheritance and decrypted in memory.
Only variable names are shown, never values.

  vaultic diff .env .env.staging
  vaultic diff --env dev --env prod`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting diff command")
		out := cmd.OutOrStdout()

		opts := workflows.DiffOptions{Common: common()}
		switch {
		case len(diffEnvs) > 0:
			if len(args) > 0 {
				return fmt.Errorf("pass either two files or --env twice, not both")
			}
			if len(diffEnvs) != 2 {
				return fmt.Errorf("--env must be given exactly twice, got %d", len(diffEnvs))
			}
			opts.LeftEnv, opts.RightEnv = diffEnvs[0], diffEnvs[1]
			path, data, err := readKeyFlag(diffKey)
			if err != nil {
				return err
			}
			opts.KeyPath, opts.KeyData = path, data
		case len(args) == 2:
			opts.LeftFile, opts.RightFile = args[0], args[1]
		case len(args) == 1:
			opts.RightFile = args[0]
		}

		result, err := workflows.Diff(cmd.Context(), opts)
		if err != nil {
			fmt.Fprintln(out, formatError(err))
			return &reportedError{err: err}
		}

		fmt.Fprintln(out, ui.Heading.Sprint(result.LeftName+" vs "+result.RightName))
		if result.Empty() {
			fmt.Fprintln(out, ui.SuccessLine("No differences"))
			return nil
		}

		for _, e := range result.Entries {
			switch e.Kind {
			case drift.Added:
				fmt.Fprintln(out, "  "+ui.Success.Sprint("+ ")+ui.Key.Sprint(e.Key)+"  "+ui.Muted.Sprint("only in "+result.RightName))
			case drift.Removed:
				fmt.Fprintln(out, "  "+ui.Error.Sprint("- ")+ui.Key.Sprint(e.Key)+"  "+ui.Muted.Sprint("only in "+result.LeftName))
			case drift.Modified:
				fmt.Fprintln(out, "  "+ui.Warning.Sprint("~ ")+ui.Key.Sprint(e.Key)+"  "+ui.Muted.Sprint("value differs"))
			}
		}
		fmt.Fprintf(out, "\n%d added, %d removed, %d modified\n",
			result.Count(drift.Added), result.Count(drift.Removed), result.Count(drift.Modified))
		return nil
	},
}

func init() {
	diffCmd.Flags().StringArrayVarP(&diffEnvs, "env", "e", nil, "environment to compare (give twice)")
	diffCmd.Flags().StringVarP(&diffKey, "key", "k", "", "private key to use (path, or - for stdin)")
}
