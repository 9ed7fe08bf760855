package cmd

import (
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the project's cipher, recipients and environments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		out := cmd.OutOrStdout()

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{Common: common()})
		if err != nil {
			fmt.Fprintln(out, formatError(err))
			return &reportedError{err: err}
		}

		fmt.Fprintln(out, ui.Heading.Sprint("Project"))
		fmt.Fprintln(out, "  Path:        "+ui.Path.Sprint(result.ProjectPath))
		cipher := result.Cipher + " " + ui.Muted.Sprint(result.CipherName)
		if !result.CipherAvailable {
			cipher += "  " + ui.Error.Sprint("not available")
		}
		fmt.Fprintln(out, "  Cipher:      "+cipher)
		fmt.Fprintln(out, "  Default env: "+ui.Env.Sprint(result.DefaultEnv))
		audit := "enabled"
		if !result.AuditEnabled {
			audit = "disabled"
		}
		fmt.Fprintln(out, "  Audit log:   "+audit)

		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.Heading.Sprintf("Recipients (%d)", len(result.Recipients)))
		switch {
		case result.Self == "":
			fmt.Fprintln(out, "  "+ui.WarningLine("You have no private key. Run "+ui.Code.Sprint("vaultic keys setup")))
		case result.SelfAuthorized:
			fmt.Fprintln(out, "  "+ui.SuccessLine("Your key is a recipient"))
		default:
			fmt.Fprintln(out, "  "+ui.WarningLine("Your key is not a recipient: "+ui.Key.Sprint(result.Self)))
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.Heading.Sprint("Environments"))
		for _, env := range result.Environments {
			name := ui.Env.Sprint(env.Name)
			if env.Inherits != "" {
				name += " " + ui.Muted.Sprint("inherits "+env.Inherits)
			}
			if !env.Encrypted {
				fmt.Fprintf(out, "  %s  %s\n", name, ui.Warning.Sprint("not encrypted"))
				continue
			}

			details := env.Ciphertext + ", " + env.ModTime
			if env.Recipients >= 0 {
				details += fmt.Sprintf(", %d recipient(s)", env.Recipients)
			}
			fmt.Fprintf(out, "  %s  %s  %s\n", name, formatIntegrity(env.Integrity), ui.Muted.Sprint(details))
		}

		if len(result.Orphans) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.WarningLine("Encrypted files no environment uses:"+ui.Bullets(result.Orphans)))
		}
		return nil
	},
}

func formatIntegrity(i workflows.Integrity) string {
	switch i {
	case workflows.IntegrityVerified:
		return ui.Success.Sprint("verified")
	case workflows.IntegrityModified:
		return ui.Error.Sprint("modified outside vaultic")
	}
	return ui.Muted.Sprint("unverified")
}
