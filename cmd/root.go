package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	logger "github.com/SoftDryzz/vaultic/internal/logging"
	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "vaultic",
		Short: "Encrypted, layered .env files shared through git",
		Long: `Vaultic keeps .env files encrypted in the repository under .vaultic/.

Each environment layer is encrypted for every authorized recipient, and
environments inherit from one another (dev inherits base, and so on).

Usage:
  vaultic init                      # set up .vaultic and your key
  vaultic encrypt .env --env dev    # encrypt a layer
  vaultic resolve --env dev         # merge the chain into .env
  vaultic keys add <public-key>     # authorize a teammate
  vaultic encrypt --all             # re-encrypt for the current recipients`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Running %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(resolveCmd)
	RootCmd.AddCommand(keysCmd)
	RootCmd.AddCommand(diffCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(cleanCmd)
}

// ResetGlobalState resets all flag variables to their defaults for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetInitCommandState()
	resetEncryptCommandState()
	resetDecryptCommandState()
	resetResolveCommandState()
	resetKeysCommandState()
	resetDiffCommandState()
	resetCheckCommandState()
	resetLogCommandState()
	resetDoctorCommandState()
	resetCleanCommandState()
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(RootCmd.ErrOrStderr(), ui.ErrorLine(err.Error()))
			return 1
		}
		if reported.code > 0 {
			return reported.code
		}
		return 1
	}
	return 0
}
