package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// GPGCipher delegates to an external gpg binary and the user's keyring.
type GPGCipher struct {
	Binary string
}

func NewGPGCipher(binary string) *GPGCipher {
	if binary == "" {
		binary = "gpg"
	}
	return &GPGCipher{Binary: binary}
}

func (c *GPGCipher) Name() string {
	return "gpg (external keyring)"
}

func (c *GPGCipher) Scheme() Scheme {
	return SchemeGPG
}

// Available reports whether the gpg binary can be run.
func (c *GPGCipher) Available() bool {
	_, _, err := c.run(nil, "--version")
	return err == nil
}

func (c *GPGCipher) Encrypt(plaintext []byte, recipients []Recipient) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, verrors.ErrEmptyRecipientList
	}

	args := []string{"--encrypt", "--armor", "--batch", "--yes", "--trust-model", "always"}
	seen := make(map[string]bool)
	for _, r := range recipients {
		if r.Scheme != "" && r.Scheme != SchemeGPG {
			return nil, fmt.Errorf("%w: %s is a %s key, not a gpg key", verrors.ErrInvalidRecipient, r.PublicKey, r.Scheme)
		}
		if seen[r.PublicKey] {
			continue
		}
		seen[r.PublicKey] = true
		args = append(args, "--recipient", r.PublicKey)
	}

	out, stderr, err := c.run(plaintext, args...)
	if err != nil {
		if errors.Is(err, verrors.ErrExternalToolUnavailable) {
			return nil, err
		}
		lower := strings.ToLower(stderr)
		if strings.Contains(lower, "no public key") || strings.Contains(lower, "unusable public key") {
			return nil, fmt.Errorf("%w: %s", verrors.ErrInvalidRecipient, strings.TrimSpace(stderr))
		}
		return nil, fmt.Errorf("gpg encrypt failed: %s", strings.TrimSpace(stderr))
	}
	return out, nil
}

// Decrypt runs gpg --decrypt. When key.Data is set it is imported into a
// throwaway keyring; when key.Path is a directory it is used as --homedir.
func (c *GPGCipher) Decrypt(ciphertext []byte, key PrivateKeySource) ([]byte, error) {
	var args []string

	switch {
	case len(key.Data) > 0:
		home, err := os.MkdirTemp("", "vaultic-gpg-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary keyring: %w", err)
		}
		defer os.RemoveAll(home)

		if _, stderr, err := c.run(key.Data, "--homedir", home, "--batch", "--import"); err != nil {
			if errors.Is(err, verrors.ErrExternalToolUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: gpg import failed: %s", verrors.ErrInvalidPrivateKey, strings.TrimSpace(stderr))
		}
		args = append(args, "--homedir", home)
	case key.Path != "":
		if info, err := os.Stat(key.Path); err == nil && info.IsDir() {
			args = append(args, "--homedir", key.Path)
		}
	}

	args = append(args, "--decrypt", "--batch", "--yes")
	out, stderr, err := c.run(ciphertext, args...)
	if err != nil {
		if errors.Is(err, verrors.ErrExternalToolUnavailable) {
			return nil, err
		}
		if strings.Contains(strings.ToLower(stderr), "no secret key") {
			return nil, verrors.ErrKeyNotAuthorized
		}
		return nil, fmt.Errorf("%w: gpg: %s", verrors.ErrCiphertextCorrupt, strings.TrimSpace(stderr))
	}
	return out, nil
}

// run streams stdin through gpg and returns stdout and stderr.
func (c *GPGCipher) run(stdin []byte, args ...string) ([]byte, string, error) {
	cmd := exec.Command(c.Binary, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, "", fmt.Errorf("%w: %s: %v", verrors.ErrExternalToolUnavailable, c.Binary, err)
		}
		return nil, stderr.String(), err
	}
	return stdout.Bytes(), stderr.String(), nil
}
