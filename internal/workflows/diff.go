package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/dotenv"
	"github.com/SoftDryzz/vaultic/internal/drift"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// DiffOptions configures the diff workflow. Set LeftEnv and RightEnv to
// compare two resolved environments, or LeftFile and RightFile to compare
// two plaintext files.
type DiffOptions struct {
	Common

	LeftFile  string // Defaults to ".env" in file mode.
	RightFile string

	LeftEnv  string
	RightEnv string

	KeyPath string
	KeyData []byte
}

// Diff compares two variable sets. Environments are resolved and decrypted
// in memory; nothing is written.
func Diff(ctx context.Context, opts DiffOptions) (*drift.DiffResult, error) {
	if opts.LeftEnv != "" || opts.RightEnv != "" {
		return diffEnvironments(ctx, opts)
	}
	return diffFiles(opts)
}

func diffFiles(opts DiffOptions) (*drift.DiffResult, error) {
	if opts.RightFile == "" {
		return nil, fmt.Errorf("diff needs two files, e.g. vaultic diff .env .env.staging")
	}

	wd, err := opts.workDir()
	if err != nil {
		return nil, err
	}
	leftName := opts.LeftFile
	if leftName == "" {
		leftName = ".env"
	}

	left, err := dotenv.LoadFile(resolvePath(wd, leftName, ""))
	if err != nil {
		return nil, err
	}
	right, err := dotenv.LoadFile(resolvePath(wd, opts.RightFile, ""))
	if err != nil {
		return nil, err
	}

	result := drift.Diff(leftName, left, opts.RightFile, right)

	// Plain files can be compared outside a project; audit only inside one.
	p, err := loadProject(opts.Common)
	if err == nil {
		recordDiff(p, result, nil)
	} else if !errors.Is(err, verrors.ErrProjectNotInitialized) {
		opts.Logger.Debugf("Not auditing diff: %v", err)
	}
	return result, nil
}

func diffEnvironments(ctx context.Context, opts DiffOptions) (*drift.DiffResult, error) {
	if opts.LeftEnv == "" || opts.RightEnv == "" {
		return nil, fmt.Errorf("diff needs two environments, e.g. vaultic diff --env dev --env prod")
	}

	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}
	svc, err := p.service(opts.Common)
	if err != nil {
		return nil, err
	}
	wd, err := opts.workDir()
	if err != nil {
		return nil, err
	}
	resolver, err := p.resolver(svc, p.privateKey(resolvePath(wd, opts.KeyPath, ""), opts.KeyData))
	if err != nil {
		return nil, err
	}

	left, err := resolver.Resolve(opts.LeftEnv)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	right, err := resolver.Resolve(opts.RightEnv)
	if err != nil {
		return nil, err
	}

	result := drift.Diff(opts.LeftEnv, left.Vars, opts.RightEnv, right.Vars)

	var files []string
	for _, layers := range [][]string{left.Layers, right.Layers} {
		for _, layer := range layers {
			files = appendUnique(files, svc.CiphertextName(layer))
		}
	}
	recordDiff(p, result, files)
	return result, nil
}

func recordDiff(p *project, result *drift.DiffResult, files []string) {
	p.audit.Record(audit.Entry{
		Action: audit.ActionDiff,
		Files:  files,
		Detail: fmt.Sprintf("%s vs %s: %d added, %d removed, %d modified",
			result.LeftName, result.RightName,
			result.Count(drift.Added), result.Count(drift.Removed), result.Count(drift.Modified)),
	})
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
