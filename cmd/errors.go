package cmd

import (
	"context"
	"errors"
	"strings"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/ui"
)

// reportedError marks an error whose message has already been shown to the
// user. Execute exits non-zero without printing it again.
type reportedError struct {
	err  error
	code int // Exit code. Zero means 1.
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// fail renders err into the spinner's final message and returns it marked
// as reported.
func fail(finalMSG *string, err error) error {
	Logger.Errorf("%v", err)
	*finalMSG = formatError(err)
	return &reportedError{err: err}
}

// formatError renders err with a hint on how to fix it, when there is one.
func formatError(err error) string {
	var (
		cycle    *verrors.CircularInheritanceError
		notFound *verrors.EnvironmentNotFoundError
	)

	switch {
	case errors.As(err, &cycle):
		return ui.Lines(
			ui.ErrorLine("Circular inheritance: "+strings.Join(cycle.Chain, " -> ")),
			ui.HintLine("Fix the "+ui.Code.Sprint("inherits")+" entries in "+ui.Path.Sprint(".vaultic/config.toml")),
		)

	case errors.As(err, &notFound):
		available := "none defined"
		if len(notFound.Available) > 0 {
			envs := make([]string, len(notFound.Available))
			for i, name := range notFound.Available {
				envs[i] = ui.Env.Sprint(name)
			}
			available = strings.Join(envs, ", ")
		}
		return ui.Lines(
			ui.ErrorLine("Environment "+ui.Env.Sprint(notFound.Name)+" is not defined"),
			ui.HintLine("Available environments: "+available),
		)

	case errors.Is(err, verrors.ErrProjectNotInitialized):
		return ui.Lines(
			ui.ErrorLine("Vaultic has not been initialized"),
			ui.HintLine("Run "+ui.Code.Sprint("vaultic init")+" first"),
		)

	case errors.Is(err, verrors.ErrProjectAlreadyInitialized):
		return ui.Lines(
			ui.ErrorLine("Vaultic has already been initialized"),
			ui.HintLine("Run "+ui.Code.Sprint("vaultic status")+" to see the project"),
		)

	case errors.Is(err, verrors.ErrKeyNotAuthorized):
		return ui.Lines(
			ui.ErrorLine("Your key cannot decrypt this file"),
			ui.HintLine("Ask an admin to run "+ui.Code.Sprint("vaultic keys add <your-public-key>")+
				" and then "+ui.Code.Sprint("vaultic encrypt --all")),
		)

	case errors.Is(err, verrors.ErrPrivateKeyNotFound):
		return ui.Lines(
			ui.ErrorLine("No private key found"),
			ui.HintLine("Run "+ui.Code.Sprint("vaultic keys setup")+" to create one, or pass "+ui.Code.Sprint("--key")),
		)

	case errors.Is(err, verrors.ErrEmptyRecipientList):
		return ui.Lines(
			ui.ErrorLine("No recipients configured"),
			ui.HintLine("Add a key with "+ui.Code.Sprint("vaultic keys add <public-key>")),
		)

	case errors.Is(err, verrors.ErrExternalToolUnavailable):
		return ui.Lines(
			ui.ErrorLine("gpg is not available"),
			ui.HintLine("Install GnuPG or set "+ui.Code.Sprint("VAULTIC_GPG")+" to its path"),
		)

	case errors.Is(err, verrors.ErrTemplateNotFound):
		return ui.Lines(
			ui.ErrorLine("No template file found"),
			ui.HintLine("Create "+ui.Path.Sprint(".env.template")+" or set "+ui.Code.Sprint("template")+
				" in "+ui.Path.Sprint(".vaultic/config.toml")),
		)

	case errors.Is(err, context.Canceled):
		return ui.ErrorLine("Cancelled")
	}

	switch verrors.KindOf(err) {
	case verrors.KindConfig:
		return ui.Lines(
			ui.ErrorLine(err.Error()),
			ui.HintLine("Check "+ui.Path.Sprint(".vaultic/config.toml")),
		)
	case verrors.KindCrypto:
		return ui.Lines(
			ui.ErrorLine(err.Error()),
			ui.HintLine("Run "+ui.Code.Sprint("vaultic status")+" to check your access"),
		)
	}
	return ui.ErrorLine(err.Error())
}
