package workflows

import (
	"context"
	"os"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/secrets"
)

// Integrity says whether a ciphertext still matches what vaultic last wrote.
type Integrity string

const (
	// IntegrityVerified means the file hashes to the state recorded in the
	// audit log by the last encrypt or re-encrypt.
	IntegrityVerified Integrity = "verified"
	// IntegrityModified means the file changed outside vaultic.
	IntegrityModified Integrity = "modified"
	// IntegrityUnknown means there is nothing to compare against.
	IntegrityUnknown Integrity = "unknown"
)

// EnvironmentStatus describes one configured environment.
type EnvironmentStatus struct {
	Name       string
	Inherits   string
	Ciphertext string // File name inside .vaultic.
	Encrypted  bool

	// Recipients is the number of recipients in the envelope. Only known for
	// the native cipher; -1 otherwise.
	Recipients int

	Integrity Integrity
	ModTime   string
}

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Common
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	ProjectPath string
	Cipher      string
	CipherName  string

	// CipherAvailable is false when the gpg binary cannot be run.
	CipherAvailable bool

	DefaultEnv   string
	AuditEnabled bool

	Recipients []secrets.Recipient

	// Self is the user's public key; SelfAuthorized says whether it is a
	// recipient.
	Self           string
	SelfAuthorized bool

	Environments []EnvironmentStatus

	// Orphans are .enc files in .vaultic that no environment claims.
	Orphans []string
}

// Status summarizes the project: cipher, recipients, environments with
// ciphertext presence and inheritance, and orphaned ciphertext.
//
// Returns ErrProjectNotInitialized if no .vaultic directory is found.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
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

	result := &StatusResult{
		ProjectPath:     p.settings.ProjectPath,
		Cipher:          p.config.Vaultic.DefaultCipher,
		CipherName:      svc.Cipher().Name(),
		CipherAvailable: true,
		DefaultEnv:      p.config.ResolveEnv(""),
		AuditEnabled:    p.config.Audit.Enabled,
		Recipients:      recipients,
	}

	if gpg, ok := svc.Cipher().(*secrets.GPGCipher); ok {
		result.CipherAvailable = gpg.Available()
	}

	if id, err := secrets.LoadIdentity(secrets.PrivateKeySource{Path: p.user.IdentityPath}); err == nil {
		result.Self = id.PublicKey()
		id.Zero()
		for _, r := range recipients {
			if r.PublicKey == result.Self {
				result.SelfAuthorized = true
			}
		}
	}

	var entries []audit.Entry
	if p.config.Audit.Enabled {
		entries, err = audit.ReadEntries(p.audit.Path)
		if err != nil {
			p.log.Warnf("Could not read audit log: %v", err)
		}
	}

	for _, name := range p.config.EnvironmentNames() {
		ciphertext := svc.CiphertextName(name)

		status := EnvironmentStatus{
			Name:       name,
			Inherits:   p.config.Environments[name].Inherits,
			Ciphertext: ciphertext,
			Recipients: -1,
			Integrity:  IntegrityUnknown,
		}

		data, err := os.ReadFile(svc.CiphertextPath(name))
		if err == nil {
			status.Encrypted = true
			if info, err := os.Stat(svc.CiphertextPath(name)); err == nil {
				status.ModTime = info.ModTime().UTC().Format("2006-01-02 15:04:05")
			}
			if svc.Cipher().Scheme() == secrets.SchemeNative {
				if n, err := secrets.EnvelopeRecipientCount(data); err == nil {
					status.Recipients = n
				}
			}
			status.Integrity = verifyIntegrity(p.settings.VaulticPath, ciphertext, data, entries)
		}

		result.Environments = append(result.Environments, status)
	}

	orphans, err := secrets.OrphanCiphertexts(p.settings.VaulticPath, p.knownCiphertexts(svc))
	if err != nil {
		return nil, err
	}
	result.Orphans = orphans

	return result, nil
}

// verifyIntegrity compares a ciphertext with the state hash of the last
// audit entry that wrote it. Entries covering several files hash all of
// them together, so a mismatch there cannot be pinned on one file.
func verifyIntegrity(dir, name string, data []byte, entries []audit.Entry) Integrity {
	entry, ok := audit.LastFor(entries, name, audit.ActionEncrypt, audit.ActionReencrypt)
	if !ok || entry.StateHash == "" {
		return IntegrityUnknown
	}

	parts := [][]byte{data}
	if len(entry.Files) > 1 {
		parts = parts[:0]
		for _, f := range entry.Files {
			b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f)))
			if err != nil {
				return IntegrityUnknown
			}
			parts = append(parts, b)
		}
	}

	match, err := audit.MatchesStateHash(entry.StateHash, parts...)
	switch {
	case err != nil:
		return IntegrityUnknown
	case match:
		return IntegrityVerified
	case len(entry.Files) > 1:
		return IntegrityUnknown
	}
	return IntegrityModified
}
