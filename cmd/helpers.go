package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/SoftDryzz/vaultic/internal/configs"
	"github.com/SoftDryzz/vaultic/internal/ui"
	"github.com/SoftDryzz/vaultic/internal/utils"
	"github.com/SoftDryzz/vaultic/internal/workflows"
	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner on out unless running verbose.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// calls ui.EnsureNewline() on the final message and prints it to out.
func startSpinner(out io.Writer, message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	opt := spinner.WithWriter(out)
	if f, ok := out.(*os.File); ok {
		opt = spinner.WithWriterFile(f)
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, opt)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

// common builds the options every workflow shares from global flags and
// the environment.
func common() workflows.Common {
	return workflows.Common{
		GPGBinary: os.Getenv(configs.GPGBinaryEnvVar),
		Logger:    Logger,
	}
}

// readKeyFlag interprets --key. "-" reads the private key from stdin;
// anything else is a path.
func readKeyFlag(value string) (path string, data []byte, err error) {
	if value != "-" {
		return value, nil, nil
	}
	Logger.Debugf("Reading private key from stdin")
	data, err = utils.ReadStdin()
	if err != nil {
		return "", nil, Logger.ErrorfAndReturn("failed to read private key: %v", err)
	}
	return "", data, nil
}
