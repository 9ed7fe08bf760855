// Package secrets encrypts environment layers for a set of recipients.
//
// # Cipher Backends
//
// Cipher is implemented by two backends, picked once per operation with
// NewCipher from the project's default_cipher:
//
//   - NativeCipher: in-process X25519 envelope encryption
//   - GPGCipher: the gpg binary and the user's keyring
//
// # Native Envelope
//
// Every Encrypt call generates a random 256-bit file key and seals the
// plaintext with NaCl secretbox. The file key is then wrapped once per
// recipient: an ephemeral X25519 key agrees a shared secret with the
// recipient, HKDF-SHA256 turns it into a wrap key, and XChaCha20-Poly1305
// seals the file key. Each recipient gets a fixed 136-byte header block
// tagged with the SHA-256 of its public key, so decryption only tries the
// block addressed to the caller.
//
// The binary envelope is PEM-armored (BEGIN VAULTIC ENCRYPTED FILE) so it
// diffs cleanly in git. The file key never leaves Encrypt and is zeroed
// before it returns.
//
// # Keys
//
// Native public keys look like "vaultic1" followed by 52 base32 characters.
// Private keys are stored in an identity file with owner-only permissions,
// outside the repository. Recipients live in .vaultic/recipients.txt, one
// key per line with an optional "# label".
//
// # Service
//
// Service ties a Cipher to a KeyStore and the .vaultic directory. Every
// write goes to a temporary file that is renamed into place, so an
// interrupted ReencryptAll leaves each environment either fully old or
// fully new.
package secrets
