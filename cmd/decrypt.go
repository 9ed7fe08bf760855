package cmd

import (
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	decryptEnv    string
	decryptKey    string
	decryptOutput string
)

func resetDecryptCommandState() {
	decryptEnv = ""
	decryptKey = ""
	decryptOutput = ""
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [file]",
	Short: "Decrypts a single environment layer to a plaintext file",
	Long: `Decrypts one layer without applying inheritance. Use 'vaultic resolve' to
get the merged result of an environment and its parents.

The layer is chosen with --env, or by passing the encrypted file directly.
The output (default .env) is written with owner-only permissions.

Pass --key - to read the private key from stdin, for example in CI:

  echo "$VAULTIC_KEY" | vaultic decrypt --env prod --key -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")
		s, cleanup := startSpinner(cmd.OutOrStdout(), "Decrypting environment file...")
		defer cleanup()

		keyPath, keyData, err := readKeyFlag(decryptKey)
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		opts := workflows.DecryptOptions{
			Common:  common(),
			Env:     decryptEnv,
			Output:  decryptOutput,
			KeyPath: keyPath,
			KeyData: keyData,
		}
		if len(args) > 0 {
			opts.File = args[0]
		}

		result, err := workflows.Decrypt(cmd.Context(), opts)
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		source := ui.Path.Sprint(filepath.Base(result.SourceFile))
		if result.Env != "" {
			source = ui.Env.Sprint(result.Env)
		}

		lines := []string{
			ui.SuccessLine("Decrypted " + source + " into " + ui.Path.Sprint(result.OutputFile)),
		}
		if result.Overwrote {
			lines = append(lines, ui.WarningLine("Overwrote the existing "+ui.Path.Sprint(filepath.Base(result.OutputFile))))
		}
		lines = append(lines, ui.WarningLine("Never commit plaintext .env files"))
		s.FinalMSG = ui.Lines(lines...)
		return nil
	},
}

func init() {
	decryptCmd.Flags().StringVarP(&decryptEnv, "env", "e", "", "environment layer to decrypt (default from config)")
	decryptCmd.Flags().StringVarP(&decryptKey, "key", "k", "", "private key to use (path, or - for stdin)")
	decryptCmd.Flags().StringVarP(&decryptOutput, "output", "o", "", "where to write the plaintext (default .env)")
}
