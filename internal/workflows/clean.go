package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/secrets"
)

// CleanOptions configures the clean workflow.
type CleanOptions struct {
	Common

	// DryRun previews what would be removed without making changes.
	DryRun bool
}

// CleanResult contains the outcome of a clean operation.
type CleanResult struct {
	// Orphans are the orphaned ciphertexts, relative to .vaultic.
	Orphans []string

	// RemovedCount is the number of files removed (0 if dry-run).
	RemovedCount int

	DryRun bool
}

// Clean removes ciphertexts in .vaultic that no environment claims.
//
// An orphan is left behind when an environment is removed from config.toml
// or its file name changes.
//
// Returns ErrProjectNotInitialized if no .vaultic directory is found.
func Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}
	svc, err := p.service(opts.Common)
	if err != nil {
		return nil, err
	}

	orphans, err := secrets.OrphanCiphertexts(p.settings.VaulticPath, p.knownCiphertexts(svc))
	if err != nil {
		return nil, fmt.Errorf("finding orphaned ciphertexts: %w", err)
	}

	result := &CleanResult{
		Orphans: orphans,
		DryRun:  opts.DryRun,
	}
	if len(orphans) == 0 || opts.DryRun {
		return result, nil
	}

	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(p.settings.VaulticPath, filepath.FromSlash(orphan))
		p.log.Debugf("Removing orphaned ciphertext: %s", path)
		if err := os.Remove(path); err != nil {
			return result, fmt.Errorf("removing %s: %w", path, err)
		}
		result.RemovedCount++
	}

	p.audit.Record(audit.Entry{
		Action: audit.ActionClean,
		Files:  orphans,
		Detail: fmt.Sprintf("removed %d orphaned ciphertext(s)", result.RemovedCount),
	})
	return result, nil
}
