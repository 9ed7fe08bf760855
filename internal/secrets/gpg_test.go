package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

// fakeGPG stands in for gpg. "Ciphertext" is the plaintext behind a header
// naming the recipients, and a key can decrypt when its id is listed there.
const fakeGPG = `#!/bin/sh
echo "$@" >> "$FAKE_GPG_LOG"
homedir=""
mode=""
keys=""
while [ $# -gt 0 ]; do
  case "$1" in
    --homedir) homedir="$2"; shift ;;
    --recipient) keys="$keys $2"; shift ;;
    --version) echo "gpg (fake) 2.4.0"; exit 0 ;;
    --encrypt) mode=encrypt ;;
    --decrypt) mode=decrypt ;;
    --import) mode=import ;;
  esac
  shift
done
case "$mode" in
  encrypt)
    echo "-----BEGIN FAKE PGP-----"
    echo "recipients:$keys"
    cat
    ;;
  import)
    cat > "$homedir/fake-secret"
    ;;
  decrypt)
    read -r header
    if [ "$header" != "-----BEGIN FAKE PGP-----" ]; then
      echo "gpg: no valid OpenPGP data found." >&2
      exit 2
    fi
    read -r recips
    secret="$FAKE_GPG_SECRET"
    if [ -n "$homedir" ] && [ -f "$homedir/fake-secret" ]; then
      secret=$(cat "$homedir/fake-secret")
    fi
    case "$recips " in
      *" $secret "*) cat ;;
      *) echo "gpg: decryption failed: No secret key" >&2; exit 2 ;;
    esac
    ;;
esac
`

func newFakeGPG(t *testing.T) (*GPGCipher, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake gpg is a shell script")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "gpg")
	if err := os.WriteFile(bin, []byte(fakeGPG), 0755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "calls.log")
	t.Setenv("FAKE_GPG_LOG", logPath)
	t.Setenv("FAKE_GPG_SECRET", "")
	return NewGPGCipher(bin), logPath
}

func gpgRecipient(id string) Recipient {
	return Recipient{PublicKey: id, Scheme: SchemeGPG}
}

func TestGPGRoundTripWithImportedKey(t *testing.T) {
	c, _ := newFakeGPG(t)

	ciphertext, err := c.Encrypt([]byte("API_KEY=abc"), []Recipient{
		gpgRecipient("alice@example.com"),
		gpgRecipient("bob@example.com"),
	})
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := c.Decrypt(ciphertext, PrivateKeySource{Data: []byte("bob@example.com")})
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(got) != "API_KEY=abc" {
		t.Errorf("Expected API_KEY=abc, got %q", got)
	}

	_, err = c.Decrypt(ciphertext, PrivateKeySource{Data: []byte("eve@example.com")})
	if !errors.Is(err, verrors.ErrKeyNotAuthorized) {
		t.Errorf("Expected ErrKeyNotAuthorized, got %v", err)
	}
}

func TestGPGDecryptWithKeyring(t *testing.T) {
	c, _ := newFakeGPG(t)

	ciphertext, err := c.Encrypt([]byte("A=1"), []Recipient{gpgRecipient("0x1234567890ABCDEF")})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Default keyring", func(t *testing.T) {
		t.Setenv("FAKE_GPG_SECRET", "0x1234567890ABCDEF")
		got, err := c.Decrypt(ciphertext, PrivateKeySource{})
		if err != nil || string(got) != "A=1" {
			t.Errorf("Expected A=1, got %q %v", got, err)
		}
	})

	t.Run("Homedir path", func(t *testing.T) {
		home := t.TempDir()
		if err := os.WriteFile(filepath.Join(home, "fake-secret"), []byte("0x1234567890ABCDEF\n"), 0600); err != nil {
			t.Fatal(err)
		}
		got, err := c.Decrypt(ciphertext, PrivateKeySource{Path: home})
		if err != nil || string(got) != "A=1" {
			t.Errorf("Expected A=1, got %q %v", got, err)
		}
	})
}

func TestGPGDeduplicatesRecipients(t *testing.T) {
	c, logPath := newFakeGPG(t)

	_, err := c.Encrypt([]byte("A=1"), []Recipient{
		gpgRecipient("alice@example.com"),
		gpgRecipient("alice@example.com"),
	})
	if err != nil {
		t.Fatal(err)
	}

	calls, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(calls), "--recipient alice@example.com"); n != 1 {
		t.Errorf("Expected one --recipient flag, got %d in %q", n, calls)
	}
	if !strings.Contains(string(calls), "--trust-model always") {
		t.Errorf("Expected batch trust model, got %q", calls)
	}
}

func TestGPGErrors(t *testing.T) {
	c, _ := newFakeGPG(t)

	if _, err := c.Encrypt([]byte("A=1"), nil); !errors.Is(err, verrors.ErrEmptyRecipientList) {
		t.Errorf("Expected ErrEmptyRecipientList, got %v", err)
	}

	native := Recipient{PublicKey: mustIdentity(t).PublicKey(), Scheme: SchemeNative}
	if _, err := c.Encrypt([]byte("A=1"), []Recipient{native}); !errors.Is(err, verrors.ErrInvalidRecipient) {
		t.Errorf("Expected ErrInvalidRecipient for a native key, got %v", err)
	}

	_, err := c.Decrypt([]byte("not pgp at all\n"), PrivateKeySource{Data: []byte("alice@example.com")})
	if !errors.Is(err, verrors.ErrCiphertextCorrupt) {
		t.Errorf("Expected ErrCiphertextCorrupt, got %v", err)
	}
}

func TestGPGMissingBinary(t *testing.T) {
	c := NewGPGCipher(filepath.Join(t.TempDir(), "no-such-gpg"))

	if c.Available() {
		t.Error("Expected Available to be false")
	}
	_, err := c.Encrypt([]byte("A=1"), []Recipient{gpgRecipient("alice@example.com")})
	if !errors.Is(err, verrors.ErrExternalToolUnavailable) {
		t.Errorf("Expected ErrExternalToolUnavailable, got %v", err)
	}
	_, err = c.Decrypt([]byte("x"), PrivateKeySource{})
	if !errors.Is(err, verrors.ErrExternalToolUnavailable) {
		t.Errorf("Expected ErrExternalToolUnavailable, got %v", err)
	}
}

func TestGPGAvailable(t *testing.T) {
	c, _ := newFakeGPG(t)
	if !c.Available() {
		t.Error("Expected fake gpg to be available")
	}
	if NewGPGCipher("").Binary != "gpg" {
		t.Error("Expected gpg as the default binary")
	}
}
