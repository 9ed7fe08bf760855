package secrets

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// Envelope layout:
//
//	magic "VLTC" | version (1) | count (uint16 BE) | count * block | body
//	block = recipient_id (32) | ephemeral_pub (32) | nonce (24) | wrapped_key (48)
//	body  = nonce (24) | secretbox(plaintext, file_key)
const (
	envelopeMagic   = "VLTC"
	envelopeVersion = byte(1)
	armorType       = "VAULTIC ENCRYPTED FILE"
	wrapInfo        = "vaultic/v1 file key wrap"

	fileKeySize   = 32
	headerSize    = len(envelopeMagic) + 1 + 2
	wrappedSize   = fileKeySize + chacha20poly1305.Overhead
	blockSize     = sha256.Size + keySize + chacha20poly1305.NonceSizeX + wrappedSize
	bodyNonceSize = 24
)

// NativeCipher encrypts in process with X25519, HKDF-SHA256 and
// XChaCha20-Poly1305 key wrapping around a NaCl secretbox body.
type NativeCipher struct {
	rand io.Reader
}

func NewNativeCipher() *NativeCipher {
	return &NativeCipher{rand: rand.Reader}
}

func (c *NativeCipher) Name() string {
	return "native (X25519 + XChaCha20-Poly1305)"
}

func (c *NativeCipher) Scheme() Scheme {
	return SchemeNative
}

// Encrypt seals plaintext under a fresh file key and wraps that key once for
// every distinct recipient.
func (c *NativeCipher) Encrypt(plaintext []byte, recipients []Recipient) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, verrors.ErrEmptyRecipientList
	}

	var publicKeys [][]byte
	seen := make(map[string]bool)
	for _, r := range recipients {
		if r.Scheme != "" && r.Scheme != SchemeNative {
			return nil, fmt.Errorf("%w: %s is a %s key, not a native key", verrors.ErrInvalidRecipient, r.PublicKey, r.Scheme)
		}
		if seen[r.PublicKey] {
			continue
		}
		raw, err := decodePublicKey(r.PublicKey)
		if err != nil {
			return nil, err
		}
		seen[r.PublicKey] = true
		publicKeys = append(publicKeys, raw)
	}
	if len(publicKeys) > math.MaxUint16 {
		return nil, fmt.Errorf("too many recipients: %d", len(publicKeys))
	}

	var fileKey [fileKeySize]byte
	defer zero(fileKey[:])
	if _, err := io.ReadFull(c.rand, fileKey[:]); err != nil {
		return nil, fmt.Errorf("failed to generate file key: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(publicKeys)*blockSize + bodyNonceSize + len(plaintext) + secretbox.Overhead)
	buf.WriteString(envelopeMagic)
	buf.WriteByte(envelopeVersion)
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(publicKeys)))

	for _, pub := range publicKeys {
		block, err := c.wrapFileKey(fileKey[:], pub)
		if err != nil {
			return nil, err
		}
		buf.Write(block)
	}

	var nonce [bodyNonceSize]byte
	if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	buf.Write(secretbox.Seal(nonce[:], plaintext, &nonce, &fileKey))

	return pem.EncodeToMemory(&pem.Block{Type: armorType, Bytes: buf.Bytes()}), nil
}

func (c *NativeCipher) wrapFileKey(fileKey, recipientPub []byte) ([]byte, error) {
	ephemeral := make([]byte, keySize)
	defer zero(ephemeral)
	if _, err := io.ReadFull(c.rand, ephemeral); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	ephemeralPub, err := curve25519.X25519(ephemeral, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive ephemeral key: %w", err)
	}

	shared, err := curve25519.X25519(ephemeral, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrInvalidRecipient, err)
	}
	defer zero(shared)

	aead, err := newWrapAEAD(shared, ephemeralPub, recipientPub)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	id := sha256.Sum256(recipientPub)
	block := make([]byte, 0, blockSize)
	block = append(block, id[:]...)
	block = append(block, ephemeralPub...)
	block = append(block, nonce...)
	block = aead.Seal(block, nonce, fileKey, nil)
	return block, nil
}

// Decrypt finds the header block addressed to the caller's identity, unwraps
// the file key and opens the body.
func (c *NativeCipher) Decrypt(ciphertext []byte, key PrivateKeySource) ([]byte, error) {
	identity, err := LoadIdentity(key)
	if err != nil {
		return nil, err
	}
	defer identity.Zero()

	blocks, body, err := splitEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}

	fileKey, ok := unwrapFileKey(blocks, identity)
	if !ok {
		return nil, verrors.ErrKeyNotAuthorized
	}
	defer zero(fileKey[:])

	var nonce [bodyNonceSize]byte
	copy(nonce[:], body[:bodyNonceSize])
	plaintext, ok := secretbox.Open(nil, body[bodyNonceSize:], &nonce, fileKey)
	if !ok {
		return nil, fmt.Errorf("%w: body failed authentication", verrors.ErrCiphertextCorrupt)
	}
	return plaintext, nil
}

func unwrapFileKey(blocks [][]byte, identity *Identity) (*[fileKeySize]byte, bool) {
	myID := identity.recipientID()

	for _, block := range blocks {
		if !bytes.Equal(block[:sha256.Size], myID[:]) {
			continue
		}
		rest := block[sha256.Size:]
		ephemeralPub := rest[:keySize]
		nonce := rest[keySize : keySize+chacha20poly1305.NonceSizeX]
		wrapped := rest[keySize+chacha20poly1305.NonceSizeX:]

		shared, err := curve25519.X25519(identity.secret[:], ephemeralPub)
		if err != nil {
			continue
		}
		aead, err := newWrapAEAD(shared, ephemeralPub, identity.public[:])
		zero(shared)
		if err != nil {
			continue
		}

		opened, err := aead.Open(nil, nonce, wrapped, nil)
		if err != nil || len(opened) != fileKeySize {
			continue
		}
		var fileKey [fileKeySize]byte
		copy(fileKey[:], opened)
		zero(opened)
		return &fileKey, true
	}
	return nil, false
}

func newWrapAEAD(shared, ephemeralPub, recipientPub []byte) (cipher.AEAD, error) {
	salt := make([]byte, 0, len(ephemeralPub)+len(recipientPub))
	salt = append(salt, ephemeralPub...)
	salt = append(salt, recipientPub...)

	wrapKey := make([]byte, chacha20poly1305.KeySize)
	defer zero(wrapKey)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(wrapInfo)), wrapKey); err != nil {
		return nil, fmt.Errorf("failed to derive wrap key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(wrapKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create wrap cipher: %w", err)
	}
	return aead, nil
}

// splitEnvelope removes the armor and validates the envelope framing.
func splitEnvelope(ciphertext []byte) (blocks [][]byte, body []byte, err error) {
	armored, _ := pem.Decode(ciphertext)
	if armored == nil || armored.Type != armorType {
		return nil, nil, fmt.Errorf("%w: missing %q armor", verrors.ErrCiphertextCorrupt, armorType)
	}
	data := armored.Bytes

	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: truncated header", verrors.ErrCiphertextCorrupt)
	}
	if string(data[:len(envelopeMagic)]) != envelopeMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", verrors.ErrCiphertextCorrupt)
	}
	if version := data[len(envelopeMagic)]; version != envelopeVersion {
		return nil, nil, fmt.Errorf("%w: unsupported envelope version %d", verrors.ErrCiphertextCorrupt, version)
	}

	count := int(binary.BigEndian.Uint16(data[len(envelopeMagic)+1 : headerSize]))
	if count == 0 {
		return nil, nil, fmt.Errorf("%w: no recipient blocks", verrors.ErrCiphertextCorrupt)
	}

	bodyStart := headerSize + count*blockSize
	if len(data) < bodyStart+bodyNonceSize+secretbox.Overhead {
		return nil, nil, fmt.Errorf("%w: truncated envelope", verrors.ErrCiphertextCorrupt)
	}

	blocks = make([][]byte, count)
	for i := 0; i < count; i++ {
		start := headerSize + i*blockSize
		blocks[i] = data[start : start+blockSize]
	}
	return blocks, data[bodyStart:], nil
}

// EnvelopeRecipientCount returns how many recipients a native ciphertext is
// addressed to, without decrypting it.
func EnvelopeRecipientCount(ciphertext []byte) (int, error) {
	blocks, _, err := splitEnvelope(ciphertext)
	if err != nil {
		return 0, err
	}
	return len(blocks), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
