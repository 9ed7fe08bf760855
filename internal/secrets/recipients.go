package secrets

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

var (
	gpgFingerprintPattern = regexp.MustCompile(`^[0-9A-Fa-f]{40}$`)
	gpgKeyIDPattern       = regexp.MustCompile(`^(0x)?[0-9A-Fa-f]{16}$`)
)

// DetectScheme guesses the scheme of a public key from its shape.
func DetectScheme(publicKey string) Scheme {
	if strings.HasPrefix(publicKey, PublicKeyPrefix) {
		return SchemeNative
	}
	return SchemeGPG
}

// ValidateRecipient checks r against its scheme's key grammar. A recipient
// without a scheme is checked against the detected one.
func ValidateRecipient(r Recipient) error {
	if strings.ContainsAny(r.Label, "#\r\n") {
		return fmt.Errorf("%w: label %q must not contain '#' or line breaks", verrors.ErrInvalidRecipient, r.Label)
	}

	scheme := r.Scheme
	if scheme == "" {
		scheme = DetectScheme(r.PublicKey)
	}

	switch scheme {
	case SchemeNative:
		_, err := decodePublicKey(r.PublicKey)
		return err
	case SchemeGPG:
		key := r.PublicKey
		if gpgFingerprintPattern.MatchString(key) || gpgKeyIDPattern.MatchString(key) || utils.IsValidEmail(key) {
			return nil
		}
		return fmt.Errorf("%w: %q is not a gpg fingerprint, long key id or e-mail address", verrors.ErrInvalidRecipient, key)
	}
	return fmt.Errorf("%w: %q", verrors.ErrUnknownScheme, scheme)
}

// ParseRecipients reads recipients.txt content: one key per line with an
// optional "# label". Blank lines and lines starting with '#' are ignored.
func ParseRecipients(data []byte) []Recipient {
	var out []Recipient
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, label := line, ""
		if i := strings.Index(line, "#"); i >= 0 {
			key = strings.TrimSpace(line[:i])
			label = strings.TrimSpace(line[i+1:])
		}
		if key == "" {
			continue
		}

		out = append(out, Recipient{PublicKey: key, Scheme: DetectScheme(key), Label: label})
	}
	return out
}

// FormatRecipients renders recipients in the recipients.txt format.
func FormatRecipients(recipients []Recipient) []byte {
	var b strings.Builder
	b.WriteString("# vaultic recipients: one public key per line, optional '# label'\n")
	for _, r := range recipients {
		b.WriteString(r.PublicKey)
		if r.Label != "" {
			b.WriteString(" # ")
			b.WriteString(r.Label)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}
