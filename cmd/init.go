package cmd

import (
	"github.com/SoftDryzz/vaultic/internal/configs"
	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var initCipher string

func resetInitCommandState() {
	initCipher = configs.DefaultCipher
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates .vaultic/ in the current directory",
	Long: `Creates .vaultic/ with a config defining the base and dev environments and
an empty recipient list.

With the native cipher, a private key is generated in your config directory
if you do not have one yet, and its public key becomes the first recipient.
With --cipher gpg, add GPG key IDs or fingerprints with 'vaultic keys add'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		s, cleanup := startSpinner(cmd.OutOrStdout(), "Initializing vaultic...")
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			Common:      common(),
			Cipher:      initCipher,
			GenerateKey: true,
		})
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		lines := []string{
			ui.SuccessLine("Vaultic initialized in " + ui.Path.Sprint(result.ProjectPath)),
			"  Cipher: " + result.Cipher,
		}
		if result.KeyGenerated {
			lines = append(lines, ui.SuccessLine("Generated a private key at "+ui.Path.Sprint(result.IdentityPath)))
		}
		if result.PublicKey != "" {
			lines = append(lines, "  Your public key: "+ui.Key.Sprint(result.PublicKey))
		}
		if result.TemplateCreated {
			lines = append(lines, ui.SuccessLine("Created "+ui.Path.Sprint(".env.template")))
		}
		if len(result.GitignoreEntries) > 0 {
			lines = append(lines, ui.SuccessLine("Added "+ui.Path.Sprint(".env")+" to "+ui.Path.Sprint(".gitignore")))
		}
		if result.PublicKey == "" {
			lines = append(lines, ui.HintLine("Add a recipient with "+ui.Code.Sprint("vaultic keys add <key-id>")))
		}
		lines = append(lines,
			ui.HintLine("Encrypt your first layer with "+ui.Code.Sprint("vaultic encrypt .env --env dev")),
			ui.WarningLine("Never commit plaintext .env files"),
		)

		s.FinalMSG = ui.Lines(lines...)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initCipher, "cipher", configs.DefaultCipher, "cipher backend: native or gpg")
}
