package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/audit"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	logger "github.com/SoftDryzz/vaultic/internal/logging"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

// CiphertextExt is appended to an environment's file name on disk.
const CiphertextExt = ".enc"

// FileNamer maps an environment name to its plaintext file name.
type FileNamer func(env string) string

// DefaultFileNamer names the layer of env "<env>.env".
func DefaultFileNamer(env string) string {
	return env + ".env"
}

// Service encrypts and decrypts environment layers stored in a .vaultic
// directory, for the recipients of a KeyStore.
type Service struct {
	cipher   Cipher
	store    KeyStore
	dir      string
	namer    FileNamer
	recorder audit.Recorder
	log      logger.Logger
}

type ServiceOption func(*Service)

func WithRecorder(r audit.Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l logger.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

func WithFileNamer(n FileNamer) ServiceOption {
	return func(s *Service) { s.namer = n }
}

// NewService returns a Service writing ciphertext into dir.
func NewService(cipher Cipher, store KeyStore, dir string, opts ...ServiceOption) *Service {
	s := &Service{
		cipher:   cipher,
		store:    store,
		dir:      dir,
		namer:    DefaultFileNamer,
		recorder: audit.Discard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Cipher() Cipher {
	return s.cipher
}

// CiphertextName returns the file name of env's ciphertext inside the
// .vaultic directory, e.g. "dev.env.enc".
func (s *Service) CiphertextName(env string) string {
	return s.namer(env) + CiphertextExt
}

func (s *Service) CiphertextPath(env string) string {
	return filepath.Join(s.dir, s.CiphertextName(env))
}

// EncryptFile encrypts the plaintext file for the current recipients and
// stores it as env's ciphertext. Returns the ciphertext path.
func (s *Service) EncryptFile(plaintextPath, env string) (string, error) {
	plaintext, err := os.ReadFile(plaintextPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", verrors.ErrFileNotFound, plaintextPath)
		}
		return "", fmt.Errorf("failed to read %s: %w", plaintextPath, err)
	}
	defer zero(plaintext)

	return s.EncryptBytes(plaintext, env)
}

// EncryptBytes is EncryptFile for plaintext already in memory.
func (s *Service) EncryptBytes(plaintext []byte, env string) (string, error) {
	recipients, err := s.recipients()
	if err != nil {
		return "", err
	}

	path, ciphertext, err := s.encrypt(plaintext, env, recipients)
	if err != nil {
		return "", err
	}

	hash, _ := audit.StateHash(ciphertext)
	s.recorder.Record(audit.Entry{
		Action:    audit.ActionEncrypt,
		Files:     []string{s.CiphertextName(env)},
		Detail:    fmt.Sprintf("%s: %d recipient(s)", env, len(recipients)),
		StateHash: hash,
	})
	return path, nil
}

func (s *Service) recipients() ([]Recipient, error) {
	recipients, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil, verrors.ErrEmptyRecipientList
	}
	return recipients, nil
}

func (s *Service) encrypt(plaintext []byte, env string, recipients []Recipient) (string, []byte, error) {
	path := s.CiphertextPath(env)
	s.log.Infof("Encrypting %s for %d recipient(s) with %s", env, len(recipients), s.cipher.Name())

	ciphertext, err := s.cipher.Encrypt(plaintext, recipients)
	if err != nil {
		return "", nil, &verrors.OpError{Op: "encrypt", Path: path, Err: err}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	// #nosec G306 -- ciphertext is committed to git and shared with the team.
	if err := utils.WriteFileAtomic(path, ciphertext, 0644); err != nil {
		return "", nil, &verrors.OpError{Op: "encrypt", Kind: verrors.KindIO, Path: path, Err: err}
	}

	s.log.Debugf("Wrote %d bytes to %s", len(ciphertext), path)
	return path, ciphertext, nil
}

// DecryptToBytes decrypts a ciphertext file in memory. Nothing is written.
func (s *Service) DecryptToBytes(ciphertextPath string, key PrivateKeySource) ([]byte, error) {
	ciphertext, err := os.ReadFile(ciphertextPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", verrors.ErrFileNotFound, ciphertextPath)
		}
		return nil, fmt.Errorf("failed to read %s: %w", ciphertextPath, err)
	}

	s.log.Debugf("Decrypting %s with %s", ciphertextPath, s.cipher.Name())
	plaintext, err := s.cipher.Decrypt(ciphertext, key)
	if err != nil {
		return nil, &verrors.OpError{Op: "decrypt", Path: ciphertextPath, Err: err}
	}
	return plaintext, nil
}

// DecryptFile decrypts ciphertextPath and writes the plaintext to
// outputPath with owner-only permissions.
func (s *Service) DecryptFile(ciphertextPath string, key PrivateKeySource, outputPath string) error {
	plaintext, err := s.DecryptToBytes(ciphertextPath, key)
	if err != nil {
		return err
	}
	defer zero(plaintext)

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := utils.WriteFileAtomic(outputPath, plaintext, 0600); err != nil {
		return &verrors.OpError{Op: "decrypt", Kind: verrors.KindIO, Path: outputPath, Err: err}
	}

	s.log.Infof("Decrypted %s to %s", ciphertextPath, outputPath)
	s.recorder.Record(audit.Entry{
		Action: audit.ActionDecrypt,
		Files:  []string{filepath.Base(ciphertextPath)},
		Detail: "written to " + filepath.Base(outputPath),
	})
	return nil
}

// ReencryptResult reports what ReencryptAll did.
type ReencryptResult struct {
	Reencrypted []string // Environments rewritten, in order.
	Skipped     []string // Environments without ciphertext.
	Recipients  int
}

// ReencryptAll rewrites the ciphertext of each env for the current
// recipients. It stops at the first failure; environments rewritten before
// the failure stay rewritten and are listed in the returned result. ctx is
// checked before each environment.
func (s *Service) ReencryptAll(ctx context.Context, envs []string, key PrivateKeySource) (*ReencryptResult, error) {
	recipients, err := s.recipients()
	if err != nil {
		return nil, err
	}

	result := &ReencryptResult{Recipients: len(recipients)}
	var files []string
	var written [][]byte

	for _, env := range envs {
		if err := ctx.Err(); err != nil {
			s.recordReencrypt(result, files, written)
			return result, err
		}

		path := s.CiphertextPath(env)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			s.log.Debugf("No ciphertext for %s, skipping", env)
			result.Skipped = append(result.Skipped, env)
			continue
		}

		plaintext, err := s.DecryptToBytes(path, key)
		if err != nil {
			s.recordReencrypt(result, files, written)
			return result, fmt.Errorf("failed to re-encrypt %s: %w", env, err)
		}

		_, ciphertext, err := s.encrypt(plaintext, env, recipients)
		zero(plaintext)
		if err != nil {
			s.recordReencrypt(result, files, written)
			return result, fmt.Errorf("failed to re-encrypt %s: %w", env, err)
		}

		result.Reencrypted = append(result.Reencrypted, env)
		files = append(files, s.CiphertextName(env))
		written = append(written, ciphertext)
	}

	s.recordReencrypt(result, files, written)
	return result, nil
}

func (s *Service) recordReencrypt(result *ReencryptResult, files []string, written [][]byte) {
	if len(files) == 0 {
		return
	}
	hash, _ := audit.StateHash(written...)
	s.recorder.Record(audit.Entry{
		Action:    audit.ActionReencrypt,
		Files:     files,
		Detail:    fmt.Sprintf("%d environment(s) for %d recipient(s)", len(files), result.Recipients),
		StateHash: hash,
	})
}
