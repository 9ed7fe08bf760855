package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var doctorJSONOutput bool

var (
	errDoctorWarnings = errors.New("health checks found warnings")
	errDoctorErrors   = errors.New("health checks found errors")
)

func resetDoctorCommandState() {
	doctorJSONOutput = false
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Runs health checks on the project",
	Long: `Runs a series of health checks on the project and reports issues.

The doctor command checks:
  - config.toml validity, including inheritance cycles
  - cipher backend availability
  - private key existence and permissions
  - the recipient list, and whether your key is on it
  - encrypted files that predate the last recipient change
  - .gitignore coverage of .env
  - plaintext env files inside .vaultic

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting doctor command")
		out := cmd.OutOrStdout()

		result, err := workflows.Doctor(cmd.Context(), workflows.DoctorOptions{Common: common()})
		if err != nil {
			return err
		}

		if doctorJSONOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, ui.Heading.Sprint("Running health checks..."))
			fmt.Fprintln(out)
			for _, check := range result.Checks {
				line := check.Name + ": " + check.Message
				switch check.Status {
				case workflows.CheckPass:
					fmt.Fprintln(out, "  "+ui.SuccessLine(line))
				case workflows.CheckWarning:
					fmt.Fprintln(out, "  "+ui.WarningLine(line))
				default:
					fmt.Fprintln(out, "  "+ui.ErrorLine(line))
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Summary: %d passed, %d warning(s), %d error(s)\n",
				result.Summary.Passed, result.Summary.Warnings, result.Summary.Errors)
			if len(result.Suggestions) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Suggestions:")
				for _, s := range result.Suggestions {
					fmt.Fprintln(out, "  "+ui.HintLine(s))
				}
			}
		}

		switch {
		case result.Summary.Errors > 0:
			return &reportedError{err: errDoctorErrors, code: 2}
		case result.Summary.Warnings > 0:
			return &reportedError{err: errDoctorWarnings, code: 1}
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSONOutput, "json", false, "output in JSON format")
}
