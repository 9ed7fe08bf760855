package workflows

import (
	"context"
	"fmt"

	"github.com/SoftDryzz/vaultic/internal/secrets"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	Common

	// File is the plaintext to encrypt, relative to the working directory.
	// Empty means ".env".
	File string

	// Env names the environment layer. Empty means the configured default.
	Env string

	// All re-encrypts every environment for the current recipients instead
	// of encrypting File.
	All bool

	// KeyPath and KeyData select the private key used by All to decrypt the
	// existing layers. See DecryptOptions.
	KeyPath string
	KeyData []byte
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// SourceFile is the plaintext that was encrypted. Empty with All.
	SourceFile string

	// EncryptedFiles lists the ciphertext paths that were written.
	EncryptedFiles []string

	// Environments lists the environments that were written, in order.
	Environments []string

	// Skipped lists environments without ciphertext (All only).
	Skipped []string

	Recipients  int
	CipherName  string
	ProjectPath string
}

// Encrypt encrypts one plaintext file as the layer of an environment, or
// with All re-encrypts every existing layer for the current recipients.
//
// Returns ErrProjectNotInitialized if no .vaultic directory is found.
// Returns ErrEnvironmentNotFound if Env is not defined in config.toml.
// Returns ErrFileNotFound if the plaintext file does not exist.
// Returns ErrEmptyRecipientList if nobody is authorized yet.
func Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}

	svc, err := p.service(opts.Common)
	if err != nil {
		return nil, err
	}

	recipients, err := p.keyStore().List()
	if err != nil {
		return nil, err
	}

	result := &EncryptResult{
		Recipients:  len(recipients),
		CipherName:  svc.Cipher().Name(),
		ProjectPath: p.settings.ProjectPath,
	}

	if opts.All {
		return encryptAll(ctx, p, svc, opts, result)
	}

	env := p.config.ResolveEnv(opts.Env)
	if err := p.checkEnv(env); err != nil {
		return nil, err
	}

	wd, err := opts.workDir()
	if err != nil {
		return nil, err
	}
	source := resolvePath(wd, opts.File, ".env")

	path, err := svc.EncryptFile(source, env)
	if err != nil {
		return nil, err
	}

	result.SourceFile = source
	result.EncryptedFiles = []string{path}
	result.Environments = []string{env}
	return result, nil
}

// encryptAll decrypts each layer in memory and encrypts it again. Layers are
// visited in sorted-name order.
func encryptAll(ctx context.Context, p *project, svc *secrets.Service, opts EncryptOptions, result *EncryptResult) (*EncryptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wd, err := opts.workDir()
	if err != nil {
		return nil, err
	}
	key := p.privateKey(resolvePath(wd, opts.KeyPath, ""), opts.KeyData)

	envs := p.config.EnvironmentNames()
	p.log.Infof("Re-encrypting %d environment(s)", len(envs))

	reencrypted, err := svc.ReencryptAll(ctx, envs, key)
	if reencrypted != nil {
		result.Environments = reencrypted.Reencrypted
		result.Skipped = reencrypted.Skipped
		for _, env := range reencrypted.Reencrypted {
			result.EncryptedFiles = append(result.EncryptedFiles, svc.CiphertextPath(env))
		}
	}
	if err != nil {
		return result, fmt.Errorf("re-encryption stopped after %d environment(s): %w", len(result.Environments), err)
	}
	return result, nil
}
