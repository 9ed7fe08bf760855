package workflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/dotenv"
	"github.com/SoftDryzz/vaultic/internal/drift"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// CheckOptions configures the check workflow.
type CheckOptions struct {
	Common

	// File is the local env file to check. Empty means ".env".
	File string

	// Env selects environment specific templates. Empty checks against the
	// global template.
	Env string
}

// CheckResult contains the outcome of a check operation.
type CheckResult struct {
	*drift.CheckResult

	File         string
	TemplatePath string
}

// Check compares a local env file against its template. It works without a
// .vaultic directory, in which case only auto-discovered templates are used.
//
// Returns ErrFileNotFound if the local file does not exist.
// Returns ErrTemplateNotFound if no template could be found.
func Check(ctx context.Context, opts CheckOptions) (*CheckResult, error) {
	wd, err := opts.workDir()
	if err != nil {
		return nil, err
	}
	file := resolvePath(wd, opts.File, ".env")

	local, err := dotenv.LoadFile(file)
	if err != nil {
		return nil, err
	}

	sources := drift.TemplateSources{ProjectRoot: wd}
	p, err := loadProject(opts.Common)
	switch {
	case err == nil:
		sources.ProjectRoot = p.settings.ProjectPath
		sources.VaulticDir = p.settings.VaulticPath
		sources.Global = p.config.Vaultic.Template
		sources.PerEnv = make(map[string]string)
		for name, env := range p.config.Environments {
			sources.PerEnv[name] = env.Template
		}
	case errors.Is(err, verrors.ErrProjectNotInitialized):
		p = nil
		if opts.Env != "" {
			return nil, fmt.Errorf("--env needs an initialized project: %w", err)
		}
	default:
		return nil, err
	}

	if p != nil && opts.Env != "" {
		if err := p.checkEnv(opts.Env); err != nil {
			return nil, err
		}
	}

	templatePath, err := drift.ResolveTemplate(opts.Env, sources)
	if err != nil {
		return nil, err
	}
	opts.Logger.Infof("Using template %s", templatePath)

	template, err := dotenv.LoadTemplate(templatePath)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		CheckResult:  drift.Check(local, template),
		File:         file,
		TemplatePath: templatePath,
	}

	if p != nil {
		p.audit.Record(audit.Entry{
			Action: audit.ActionCheck,
			Files:  []string{filepath.Base(file)},
			Detail: fmt.Sprintf("%d/%d present, %d issue(s)", result.Present(), result.TemplateKeys, result.Issues()),
		})
	}
	return result, nil
}
