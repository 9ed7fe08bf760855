package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/utils"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logAuthor  string
	logSince   string
	logActions string
	logLimit   int
	logReverse bool
	logJSON    bool
)

func resetLogCommandState() {
	logAuthor = ""
	logSince = ""
	logActions = ""
	logLimit = 0
	logReverse = false
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Shows the project's audit log",
	Long: `Shows who encrypted, decrypted, resolved or changed recipients, and when.

Examples:
  vaultic log --author alice --since 2024-01-01
  vaultic log --action key_add,key_remove
  vaultic log -n 10 --reverse
  vaultic log --json | jq .`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")
		out := cmd.OutOrStdout()

		result, err := workflows.Log(cmd.Context(), workflows.LogOptions{
			Common:  common(),
			Author:  logAuthor,
			Since:   logSince,
			Actions: logActions,
			Limit:   logLimit,
			Reverse: logReverse,
		})
		if err != nil {
			fmt.Fprintln(out, formatLogError(err))
			return &reportedError{err: err}
		}
		Logger.Debugf("Read %d entries from %s, %d after filtering", result.Total, result.LogPath, len(result.Entries))

		if logJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			entries := result.Entries
			if entries == nil {
				entries = []audit.Entry{}
			}
			return enc.Encode(entries)
		}

		if len(result.Entries) == 0 {
			if !result.Enabled {
				fmt.Fprintln(out, ui.WarningLine("Audit logging is disabled in "+ui.Path.Sprint(".vaultic/config.toml")))
				return nil
			}
			if result.Total == 0 {
				fmt.Fprintln(out, "No audit log entries yet.")
			} else {
				fmt.Fprintln(out, "No entries match the filters.")
			}
			return nil
		}

		for _, e := range result.Entries {
			author := e.Author
			if e.Email != "" {
				author = e.Email
			}
			fmt.Fprintf(out, "%s  %-22s  %-10s  %s\n",
				ui.Muted.Sprint(workflows.FormatDateTime(e)),
				utils.Truncate(author, 22),
				string(e.Action),
				workflows.FormatDetails(e))
		}
		return nil
	},
}

func formatLogError(err error) string {
	if strings.Contains(err.Error(), "invalid date") {
		return ui.Lines(
			ui.ErrorLine(err.Error()),
			ui.HintLine("Use YYYY-MM-DD or RFC3339, e.g. "+ui.Code.Sprint("--since 2024-01-15")),
		)
	}
	return formatError(err)
}

func init() {
	logCmd.Flags().StringVar(&logAuthor, "author", "", "filter by author name or email")
	logCmd.Flags().StringVar(&logSince, "since", "", "only entries on or after this date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logActions, "action", "", "filter by action, comma-separated")
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "show only the newest N entries")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "newest first")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "print entries as JSON")
}
