package secrets

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/curve25519"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

const (
	PublicKeyPrefix = "vaultic1"
	SecretKeyPrefix = "VAULTIC-SECRET-KEY-"

	keySize = 32
	// encodedKeyLen is the unpadded base32 length of a 32-byte key.
	encodedKeyLen = 52
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Identity is a native X25519 key pair.
type Identity struct {
	secret [keySize]byte
	public [keySize]byte
}

// GenerateIdentity creates a new random key pair.
func GenerateIdentity() (*Identity, error) {
	id := &Identity{}
	if _, err := rand.Read(id.secret[:]); err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	if err := id.derivePublic(); err != nil {
		return nil, err
	}
	return id, nil
}

func (id *Identity) derivePublic() error {
	pub, err := curve25519.X25519(id.secret[:], curve25519.Basepoint)
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrInvalidPrivateKey, err)
	}
	copy(id.public[:], pub)
	return nil
}

// PublicKey returns the shareable "vaultic1..." form of the public key.
func (id *Identity) PublicKey() string {
	return PublicKeyPrefix + strings.ToLower(keyEncoding.EncodeToString(id.public[:]))
}

// Recipient returns the identity's public half as a native recipient.
func (id *Identity) Recipient(label string) Recipient {
	return Recipient{PublicKey: id.PublicKey(), Scheme: SchemeNative, Label: label}
}

// SecretKey returns the "VAULTIC-SECRET-KEY-..." encoding of the private key.
func (id *Identity) SecretKey() string {
	return SecretKeyPrefix + keyEncoding.EncodeToString(id.secret[:])
}

// Marshal renders the identity file, a commented header and the secret key.
func (id *Identity) Marshal() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "# public key: %s\n", id.PublicKey())
	b.WriteString(id.SecretKey())
	b.WriteString("\n")
	return b.Bytes()
}

// Zero clears the private key from memory.
func (id *Identity) Zero() {
	for i := range id.secret {
		id.secret[i] = 0
	}
}

func (id *Identity) recipientID() [sha256.Size]byte {
	return sha256.Sum256(id.public[:])
}

// ParseIdentity reads an identity file. Blank and '#' lines are ignored; the
// first other line must hold the secret key.
func ParseIdentity(data []byte) (*Identity, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return parseSecretKey(line)
	}
	return nil, fmt.Errorf("%w: no secret key found", verrors.ErrInvalidPrivateKey)
}

func parseSecretKey(s string) (*Identity, error) {
	if !strings.HasPrefix(s, SecretKeyPrefix) {
		return nil, fmt.Errorf("%w: expected %s prefix", verrors.ErrInvalidPrivateKey, SecretKeyPrefix)
	}
	encoded := strings.TrimPrefix(s, SecretKeyPrefix)
	if len(encoded) != encodedKeyLen || strings.ToUpper(encoded) != encoded {
		return nil, fmt.Errorf("%w: malformed secret key", verrors.ErrInvalidPrivateKey)
	}

	raw, err := keyEncoding.DecodeString(encoded)
	if err != nil || len(raw) != keySize || keyEncoding.EncodeToString(raw) != encoded {
		return nil, fmt.Errorf("%w: malformed secret key", verrors.ErrInvalidPrivateKey)
	}

	id := &Identity{}
	copy(id.secret[:], raw)
	if err := id.derivePublic(); err != nil {
		return nil, err
	}
	return id, nil
}

// LoadIdentity reads and parses the identity named by src.
func LoadIdentity(src PrivateKeySource) (*Identity, error) {
	data, err := src.read()
	if err != nil {
		return nil, err
	}
	return ParseIdentity(data)
}

// SaveIdentity writes id to path with owner-only permissions.
func SaveIdentity(path string, id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for private key at %s: %w", filepath.Dir(path), err)
	}
	if err := utils.WriteFileAtomic(path, id.Marshal(), 0600); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	return nil
}

// decodePublicKey returns the raw bytes of a "vaultic1..." key.
func decodePublicKey(key string) ([]byte, error) {
	if !strings.HasPrefix(key, PublicKeyPrefix) {
		return nil, fmt.Errorf("%w: %q does not start with %s", verrors.ErrInvalidRecipient, key, PublicKeyPrefix)
	}
	encoded := strings.TrimPrefix(key, PublicKeyPrefix)
	if len(encoded) != encodedKeyLen || strings.ToLower(encoded) != encoded {
		return nil, fmt.Errorf("%w: %q is not a valid native public key", verrors.ErrInvalidRecipient, key)
	}

	upper := strings.ToUpper(encoded)
	raw, err := keyEncoding.DecodeString(upper)
	if err != nil || len(raw) != keySize || keyEncoding.EncodeToString(raw) != upper {
		return nil, fmt.Errorf("%w: %q is not a valid native public key", verrors.ErrInvalidRecipient, key)
	}
	return raw, nil
}
