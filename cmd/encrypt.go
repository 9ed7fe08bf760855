package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/utils"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	encryptEnv string
	encryptAll bool
	encryptKey string
)

func resetEncryptCommandState() {
	encryptEnv = ""
	encryptAll = false
	encryptKey = ""
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [file]",
	Short: "Encrypts a .env file as an environment layer",
	Long: `Encrypts a plaintext file (default .env) for every recipient in
.vaultic/recipients.txt and stores it as the layer for --env.

With --all, every existing layer is decrypted with your key and encrypted
again for the current recipients. Run it after 'vaultic keys add' or
'vaultic keys remove'. Layers are rewritten one at a time; if one fails, the
layers before it have already been rewritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")
		if encryptAll && len(args) > 0 {
			return fmt.Errorf("--all re-encrypts existing layers and takes no file argument")
		}

		s, cleanup := startSpinner(cmd.OutOrStdout(), "Encrypting environment files...")
		defer cleanup()

		opts := workflows.EncryptOptions{
			Common: common(),
			Env:    encryptEnv,
			All:    encryptAll,
		}
		if len(args) > 0 {
			opts.File = args[0]
		}
		if encryptAll {
			path, data, err := readKeyFlag(encryptKey)
			if err != nil {
				return fail(&s.FinalMSG, err)
			}
			opts.KeyPath, opts.KeyData = path, data
		}

		result, err := workflows.Encrypt(cmd.Context(), opts)
		if err != nil {
			msg := formatError(err)
			if result != nil && len(result.EncryptedFiles) > 0 {
				msg = ui.Lines(msg, ui.WarningLine("Already re-encrypted: "+formatEnvs(result.Environments)))
			}
			Logger.Errorf("%v", err)
			s.FinalMSG = msg
			return &reportedError{err: err}
		}

		if encryptAll {
			lines := []string{
				ui.SuccessLine(fmt.Sprintf("Re-encrypted %d environment(s) for %d recipient(s)",
					len(result.Environments), result.Recipients)),
			}
			if len(result.EncryptedFiles) > 0 {
				rel := make([]string, len(result.EncryptedFiles))
				for i, f := range result.EncryptedFiles {
					rel[i] = relToProject(result.ProjectPath, f)
				}
				lines = append(lines, "The following files were rewritten:"+strings.TrimSuffix(utils.FormatPaths(rel), "\n"))
			}
			if len(result.Skipped) > 0 {
				lines = append(lines, "  Skipped (not encrypted yet): "+formatEnvs(result.Skipped))
			}
			s.FinalMSG = ui.Lines(lines...)
			return nil
		}

		s.FinalMSG = ui.Lines(
			ui.SuccessLine(fmt.Sprintf("Encrypted %s as %s for %d recipient(s) using %s",
				ui.Path.Sprint(filepath.Base(result.SourceFile)),
				ui.Env.Sprint(result.Environments[0]),
				result.Recipients, result.CipherName)),
			"  Wrote "+ui.Path.Sprint(relToProject(result.ProjectPath, result.EncryptedFiles[0])),
			ui.HintLine("You can now safely commit the .vaultic directory"),
		)
		return nil
	},
}

func init() {
	encryptCmd.Flags().StringVarP(&encryptEnv, "env", "e", "", "environment layer to encrypt (default from config)")
	encryptCmd.Flags().BoolVar(&encryptAll, "all", false, "re-encrypt every layer for the current recipients")
	encryptCmd.Flags().StringVarP(&encryptKey, "key", "k", "", "private key used by --all (path, or - for stdin)")
}

func formatEnvs(envs []string) string {
	formatted := make([]string, len(envs))
	for i, env := range envs {
		formatted[i] = ui.Env.Sprint(env)
	}
	return strings.Join(formatted, ", ")
}

// relToProject shortens path for display. It returns path unchanged when it
// is not inside root.
func relToProject(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
