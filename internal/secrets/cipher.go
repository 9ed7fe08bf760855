package secrets

import (
	"fmt"
	"os"
	"strings"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// Scheme names a cipher backend.
type Scheme string

const (
	SchemeNative Scheme = "native"
	SchemeGPG    Scheme = "gpg"
)

// ParseScheme maps a config value to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(name))) {
	case SchemeNative, "":
		return SchemeNative, nil
	case SchemeGPG:
		return SchemeGPG, nil
	}
	return "", fmt.Errorf("%w: %q (use native or gpg)", verrors.ErrUnknownScheme, name)
}

// Recipient is an authorized public key. Two recipients are the same
// when their PublicKey strings are equal.
type Recipient struct {
	PublicKey string
	Scheme    Scheme
	Label     string
}

func (r Recipient) String() string {
	if r.Label == "" {
		return r.PublicKey
	}
	return fmt.Sprintf("%s (%s)", r.PublicKey, r.Label)
}

// PrivateKeySource says where to find the caller's private key.
// Data wins when set (e.g. a key piped on stdin), otherwise Path is read.
type PrivateKeySource struct {
	Path string
	Data []byte
}

func (s PrivateKeySource) read() ([]byte, error) {
	if len(s.Data) > 0 {
		return s.Data, nil
	}
	if s.Path == "" {
		return nil, verrors.ErrPrivateKeyNotFound
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (run 'vaultic keys setup')", verrors.ErrPrivateKeyNotFound, s.Path)
		}
		return nil, fmt.Errorf("failed to read private key at %s: %w", s.Path, err)
	}
	return data, nil
}

// Cipher encrypts a buffer for a set of recipients and decrypts it with one
// private key. Callers never need to know which backend they hold.
type Cipher interface {
	Name() string
	Scheme() Scheme
	Encrypt(plaintext []byte, recipients []Recipient) ([]byte, error)
	Decrypt(ciphertext []byte, key PrivateKeySource) ([]byte, error)
}

type CipherOptions struct {
	// GPGBinary overrides the gpg executable. Defaults to "gpg" on PATH.
	GPGBinary string
}

// NewCipher returns the backend for scheme.
func NewCipher(scheme Scheme, opts CipherOptions) (Cipher, error) {
	switch scheme {
	case SchemeNative, "":
		return NewNativeCipher(), nil
	case SchemeGPG:
		return NewGPGCipher(opts.GPGBinary), nil
	}
	return nil, fmt.Errorf("%w: %q", verrors.ErrUnknownScheme, scheme)
}
