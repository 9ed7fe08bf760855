package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	checkEnv  string
	checkFile string
)

// errMissingVariables makes check exit non-zero so it can gate CI.
var errMissingVariables = errors.New("variables from the template are missing")

func resetCheckCommandState() {
	checkEnv = ""
	checkFile = ""
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Checks a local .env against the project's template",
	Long: `Compares a local .env with the template and reports variables that are
missing, extra, or empty. Exits non-zero when any template variable is
missing.

The template is found in this order: the --env environment's template in
config.toml, <env>.env.template in .vaultic/, the project template in
config.toml, then .env.template, .env.example, .env.sample or env.template in
the project root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting check command")
		out := cmd.OutOrStdout()

		result, err := workflows.Check(cmd.Context(), workflows.CheckOptions{
			Common: common(),
			File:   checkFile,
			Env:    checkEnv,
		})
		if err != nil {
			fmt.Fprintln(out, formatError(err))
			return &reportedError{err: err}
		}

		fmt.Fprintln(out, ui.Heading.Sprint("Checking "+filepath.Base(result.File)+" against "+filepath.Base(result.TemplatePath)))
		for _, key := range result.Missing {
			fmt.Fprintln(out, "  "+ui.ErrorLine(ui.Key.Sprint(key)+" is missing"))
		}
		for _, key := range result.Empty {
			fmt.Fprintln(out, "  "+ui.WarningLine(ui.Key.Sprint(key)+" is empty"))
		}
		for _, key := range result.Extra {
			fmt.Fprintln(out, "  "+ui.HintLine(ui.Key.Sprint(key)+" is not in the template"))
		}

		summary := fmt.Sprintf("%d/%d variables present", result.Present(), result.TemplateKeys)
		if result.OK() {
			fmt.Fprintln(out, ui.SuccessLine(summary))
			return nil
		}
		fmt.Fprintln(out, ui.WarningLine(fmt.Sprintf("%s, %d issue(s)", summary, result.Issues())))
		if len(result.Missing) > 0 {
			return &reportedError{err: errMissingVariables}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkEnv, "env", "e", "", "use this environment's template")
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "local file to check (default .env)")
}
