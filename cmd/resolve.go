package cmd

import (
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	resolveEnv    string
	resolveOutput string
	resolveFormat string
	resolveKey    string
)

func resetResolveCommandState() {
	resolveEnv = ""
	resolveOutput = ""
	resolveFormat = ""
	resolveKey = ""
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Merges an environment with the layers it inherits from",
	Long: `Decrypts every layer on the inheritance chain of --env in memory and
merges them, root first, so later layers override earlier ones. Layers
without an encrypted file are skipped.

The result is written to --output (default .env) with owner-only
permissions, or to stdout with --output -. Formats: dotenv, json, yaml.

  vaultic resolve --env prod --output - --format json | jq .`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting resolve command")

		// Keep stdout clean for the variables themselves.
		out := cmd.OutOrStdout()
		if resolveOutput == workflows.StdoutOutput {
			out = cmd.ErrOrStderr()
		}

		s, cleanup := startSpinner(out, "Resolving environment...")
		defer cleanup()

		keyPath, keyData, err := readKeyFlag(resolveKey)
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		result, err := workflows.Resolve(cmd.Context(), workflows.ResolveOptions{
			Common:  common(),
			Env:     resolveEnv,
			Output:  resolveOutput,
			Format:  resolveFormat,
			KeyPath: keyPath,
			KeyData: keyData,
			Stdout:  cmd.OutOrStdout(),
		})
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		if result.OutputFile == "" {
			// Stdout already holds the result. Only mention skipped layers.
			if len(result.Skipped) > 0 {
				s.FinalMSG = ui.WarningLine("Skipped layers without an encrypted file: " + formatEnvs(result.Skipped))
			}
			return nil
		}

		lines := []string{
			ui.SuccessLine(fmt.Sprintf("Resolved %s into %s (%d variable(s), %s)",
				ui.Env.Sprint(result.Env), ui.Path.Sprint(result.OutputFile), result.Variables, result.Format)),
			"  Layers: " + formatEnvs(result.Layers),
		}
		if len(result.Skipped) > 0 {
			lines = append(lines, ui.WarningLine("Skipped layers without an encrypted file: "+formatEnvs(result.Skipped)))
		}
		s.FinalMSG = ui.Lines(lines...)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveEnv, "env", "e", "", "environment to resolve (default from config)")
	resolveCmd.Flags().StringVarP(&resolveOutput, "output", "o", "", "output file, or - for stdout (default .env)")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "", "output format: dotenv, json or yaml (default dotenv)")
	resolveCmd.Flags().StringVarP(&resolveKey, "key", "k", "", "private key to use (path, or - for stdin)")
}
