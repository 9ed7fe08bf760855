package cmd

import (
	"fmt"
	"strings"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/utils"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	keysSetupShow bool
	keysAddLabel  string
	keysRemoveYes bool
)

func resetKeysCommandState() {
	keysSetupShow = false
	keysAddLabel = ""
	keysRemoveYes = false
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manages your key and the project's recipients",
	Long: `Manages your private key and the list of recipients in
.vaultic/recipients.txt.

Adding or removing a recipient does not touch existing ciphertext. Run
'vaultic encrypt --all' afterwards so the change takes effect.`,
}

var keysSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Creates your private key, or shows your public key if you have one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys setup command")
		s, cleanup := startSpinner(cmd.OutOrStdout(), "Setting up your key...")
		defer cleanup()

		result, err := workflows.KeysSetup(cmd.Context(), workflows.KeysSetupOptions{
			Common:   common(),
			Generate: !keysSetupShow,
		})
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		if result.PublicKey == "" {
			s.FinalMSG = ui.Lines(
				ui.WarningLine("No private key at "+ui.Path.Sprint(result.IdentityPath)),
				ui.HintLine("Run "+ui.Code.Sprint("vaultic keys setup")+" to create one"),
			)
			return nil
		}

		var lines []string
		if result.Generated {
			lines = append(lines, ui.SuccessLine("Generated a private key at "+ui.Path.Sprint(result.IdentityPath)))
		} else {
			lines = append(lines, ui.SuccessLine("Using the private key at "+ui.Path.Sprint(result.IdentityPath)))
		}
		lines = append(lines, "  Your public key: "+ui.Key.Sprint(result.PublicKey))
		if result.Registered {
			lines = append(lines, ui.SuccessLine("Added your key to this project's recipients"))
		} else {
			lines = append(lines, ui.HintLine("Share your public key with an admin, who runs "+
				ui.Code.Sprint("vaultic keys add "+result.PublicKey)))
		}
		s.FinalMSG = ui.Lines(lines...)
		return nil
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add <public-key>",
	Short: "Authorizes a public key or GPG key ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys add command")
		s, cleanup := startSpinner(cmd.OutOrStdout(), "Adding recipient...")
		defer cleanup()

		result, err := workflows.KeysAdd(cmd.Context(), workflows.KeysAddOptions{
			Common:    common(),
			PublicKey: args[0],
			Label:     keysAddLabel,
		})
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		if result.AlreadyPresent {
			s.FinalMSG = ui.WarningLine(ui.Key.Sprint(result.Recipient.PublicKey) + " is already a recipient")
			return nil
		}
		s.FinalMSG = ui.Lines(
			ui.SuccessLine(fmt.Sprintf("Added %s (%d recipient(s))", ui.Key.Sprint(result.Recipient.String()), result.Recipients)),
			ui.HintLine("Run "+ui.Code.Sprint("vaultic encrypt --all")+" so the new recipient can decrypt"),
		)
		return nil
	},
}

var keysRemoveCmd = &cobra.Command{
	Use:   "remove <public-key>",
	Short: "Removes a recipient",
	Long: `Removes a recipient from .vaultic/recipients.txt.

The removed key can still decrypt the current files, and anything already
decrypted with it stays readable. Run 'vaultic encrypt --all' right away and
rotate the secrets themselves if the key was compromised.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys remove command")

		if !keysRemoveYes && utils.IsTerminal() {
			ok, err := utils.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				"Remove "+ui.Key.Sprint(args[0])+" from the recipients?", false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), ui.WarningLine("Aborted"))
				return nil
			}
		}

		s, cleanup := startSpinner(cmd.OutOrStdout(), "Removing recipient...")
		defer cleanup()

		result, err := workflows.KeysRemove(cmd.Context(), workflows.KeysRemoveOptions{
			Common:    common(),
			PublicKey: args[0],
		})
		if err != nil {
			return fail(&s.FinalMSG, err)
		}

		s.FinalMSG = ui.Lines(
			ui.SuccessLine(fmt.Sprintf("Removed %s (%d recipient(s) left)", ui.Key.Sprint(result.PublicKey), result.Recipients)),
			ui.WarningLine("The removed key can still decrypt the current files"),
			ui.HintLine("Run "+ui.Code.Sprint("vaultic encrypt --all")+" now"),
		)
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the project's recipients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting keys list command")

		result, err := workflows.KeysList(cmd.Context(), workflows.KeysListOptions{Common: common()})
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), formatError(err))
			return &reportedError{err: err}
		}

		out := cmd.OutOrStdout()
		if len(result.Recipients) == 0 {
			fmt.Fprintln(out, ui.WarningLine("No recipients configured"))
			fmt.Fprintln(out, ui.HintLine("Add one with "+ui.Code.Sprint("vaultic keys add <public-key>")))
			return nil
		}

		fmt.Fprintln(out, ui.Heading.Sprintf("Recipients (%d)", len(result.Recipients)))
		for _, r := range result.Recipients {
			line := "  " + ui.Key.Sprint(r.PublicKey)
			if r.Label != "" {
				line += "  " + r.Label
			}
			if r.PublicKey == result.Self {
				line += "  " + ui.Muted.Sprint("you")
			}
			fmt.Fprintln(out, line)
		}
		if result.Self != "" && !containsKey(result, result.Self) {
			fmt.Fprintln(out, ui.WarningLine("Your key is not a recipient"))
		}
		return nil
	},
}

func init() {
	keysSetupCmd.Flags().BoolVar(&keysSetupShow, "show", false, "only show an existing key, never generate one")
	keysAddCmd.Flags().StringVarP(&keysAddLabel, "label", "l", "", "label stored next to the key, e.g. an email")
	keysRemoveCmd.Flags().BoolVarP(&keysRemoveYes, "yes", "y", false, "do not ask for confirmation")

	keysCmd.AddCommand(keysSetupCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysRemoveCmd)
	keysCmd.AddCommand(keysListCmd)
}

func containsKey(result *workflows.KeysListResult, key string) bool {
	for _, r := range result.Recipients {
		if strings.EqualFold(r.PublicKey, key) {
			return true
		}
	}
	return false
}
