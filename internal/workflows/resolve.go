package workflows

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/dotenv"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

// StdoutOutput as Output writes the resolved variables to Stdout.
const StdoutOutput = "-"

// ResolveOptions configures the resolve workflow.
type ResolveOptions struct {
	Common

	// Env is the environment to resolve. Empty means the configured default.
	Env string

	// Output is the destination file, or "-" for Stdout. Empty means ".env".
	Output string

	// Format is dotenv, json or yaml. Empty means dotenv.
	Format string

	KeyPath string
	KeyData []byte

	// Stdout receives the output when Output is "-". Defaults to os.Stdout.
	Stdout io.Writer
}

// ResolveResult contains the outcome of a resolve operation.
type ResolveResult struct {
	Env string

	// Layers lists the environments that contributed, root first.
	Layers []string

	// Skipped lists inherited environments without an encrypted file.
	Skipped []string

	Variables  int
	Format     dotenv.Format
	OutputFile string // Empty when written to Stdout.
}

// Resolve decrypts every layer of an environment's inheritance chain in
// memory, merges them root first and writes the result to one sink.
//
// The chain is checked before anything is decrypted, so a cycle or an
// unknown environment fails without touching a ciphertext.
//
// Returns ErrCircularInheritance or ErrEnvironmentNotFound for a bad chain.
// Returns ErrKeyNotAuthorized if any layer cannot be decrypted.
func Resolve(ctx context.Context, opts ResolveOptions) (*ResolveResult, error) {
	format, err := dotenv.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
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

	env := p.config.ResolveEnv(opts.Env)
	resolved, err := resolver.Resolve(env)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := dotenv.Encode(resolved.Vars, format)
	if err != nil {
		return nil, err
	}
	defer zero(data)

	result := &ResolveResult{
		Env:       env,
		Layers:    resolved.Layers,
		Skipped:   resolved.Skipped,
		Variables: resolved.Vars.Len(),
		Format:    format,
	}

	sink := "stdout"
	if opts.Output == StdoutOutput {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		if _, err := out.Write(data); err != nil {
			return nil, fmt.Errorf("writing resolved variables: %w", err)
		}
	} else {
		result.OutputFile = resolvePath(wd, opts.Output, ".env")
		if err := os.MkdirAll(filepath.Dir(result.OutputFile), 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(result.OutputFile), err)
		}
		if err := utils.WriteFileAtomic(result.OutputFile, data, 0600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", result.OutputFile, err)
		}
		sink = filepath.Base(result.OutputFile)
	}

	files := make([]string, 0, len(resolved.Layers))
	for _, layer := range resolved.Layers {
		files = append(files, svc.CiphertextName(layer))
	}
	p.audit.Record(audit.Entry{
		Action: audit.ActionResolve,
		Files:  files,
		Detail: fmt.Sprintf("%s -> %s (%s), %d variable(s)", env, sink, format, result.Variables),
	})

	return result, nil
}
