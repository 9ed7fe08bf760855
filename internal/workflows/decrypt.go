package workflows

import (
	"context"
	"os"
	"path/filepath"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	Common

	// File is a ciphertext path. When empty, the layer of Env is decrypted.
	File string

	// Env names the environment whose own layer is decrypted. Inherited
	// layers are not merged; use Resolve for that.
	Env string

	// Output is where plaintext is written. Empty means ".env".
	Output string

	// KeyPath overrides the private key location.
	KeyPath string

	// KeyData holds the private key when it was read from stdin.
	KeyData []byte
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	SourceFile string
	OutputFile string
	Env        string

	// Overwrote is true when OutputFile existed before.
	Overwrote bool
}

// Decrypt writes the plaintext of one encrypted layer with owner-only
// permissions.
//
// Returns ErrProjectNotInitialized if no .vaultic directory is found.
// Returns ErrFileNotFound if the ciphertext does not exist.
// Returns ErrKeyNotAuthorized if the private key is not a recipient.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
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

	result := &DecryptResult{}
	if opts.File != "" {
		result.SourceFile = resolvePath(wd, opts.File, "")
	} else {
		env := p.config.ResolveEnv(opts.Env)
		if err := p.checkEnv(env); err != nil {
			return nil, err
		}
		result.Env = env
		result.SourceFile = svc.CiphertextPath(env)
	}
	result.OutputFile = resolvePath(wd, opts.Output, ".env")

	if _, err := os.Stat(result.SourceFile); os.IsNotExist(err) {
		return nil, &verrors.OpError{Op: "decrypt", Kind: verrors.KindIO, Path: result.SourceFile, Err: verrors.ErrFileNotFound}
	}
	if _, err := os.Stat(result.OutputFile); err == nil {
		result.Overwrote = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := svc.DecryptFile(result.SourceFile, p.privateKey(resolvePath(wd, opts.KeyPath, ""), opts.KeyData), result.OutputFile); err != nil {
		return nil, err
	}
	return result, nil
}

// resolvePath makes path absolute against wd, using def when path is empty.
func resolvePath(wd, path, def string) string {
	if path == "" {
		path = def
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(wd, path)
}
