package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

// KeyStore holds the authorized recipients of a project.
type KeyStore interface {
	// Add validates r and appends it. Adding an existing key is a no-op.
	Add(r Recipient) error
	// Remove deletes the recipient with publicKey, or returns ErrRecipientNotFound.
	Remove(publicKey string) error
	// List returns recipients in insertion order.
	List() ([]Recipient, error)
}

// MemoryKeyStore keeps recipients in process.
type MemoryKeyStore struct {
	mu         sync.Mutex
	recipients []Recipient
}

func NewMemoryKeyStore(recipients ...Recipient) *MemoryKeyStore {
	return &MemoryKeyStore{recipients: append([]Recipient(nil), recipients...)}
}

func (s *MemoryKeyStore) Add(r Recipient) error {
	if err := ValidateRecipient(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients = addRecipient(s.recipients, r)
	return nil
}

func (s *MemoryKeyStore) Remove(publicKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := removeRecipient(s.recipients, publicKey)
	if err != nil {
		return err
	}
	s.recipients = out
	return nil
}

func (s *MemoryKeyStore) List() ([]Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recipient(nil), s.recipients...), nil
}

// FileKeyStore persists recipients in .vaultic/recipients.txt.
type FileKeyStore struct {
	Path string
}

func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{Path: path}
}

func (s *FileKeyStore) Add(r Recipient) error {
	if err := ValidateRecipient(r); err != nil {
		return err
	}
	if r.Scheme == "" {
		r.Scheme = DetectScheme(r.PublicKey)
	}

	existing, err := s.List()
	if err != nil {
		return err
	}
	updated := addRecipient(existing, r)
	if len(updated) == len(existing) {
		return nil
	}
	return s.write(updated)
}

func (s *FileKeyStore) Remove(publicKey string) error {
	existing, err := s.List()
	if err != nil {
		return err
	}
	updated, err := removeRecipient(existing, publicKey)
	if err != nil {
		return err
	}
	return s.write(updated)
}

// List returns no recipients when the file does not exist yet.
func (s *FileKeyStore) List() ([]Recipient, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read recipients at %s: %w", s.Path, err)
	}
	return ParseRecipients(data), nil
}

func (s *FileKeyStore) write(recipients []Recipient) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.Path), err)
	}
	// #nosec G306 -- recipients are public keys and are committed to git.
	if err := utils.WriteFileAtomic(s.Path, FormatRecipients(recipients), 0644); err != nil {
		return fmt.Errorf("failed to write recipients: %w", err)
	}
	return nil
}

func addRecipient(list []Recipient, r Recipient) []Recipient {
	for _, existing := range list {
		if existing.PublicKey == r.PublicKey {
			return list
		}
	}
	return append(list, r)
}

func removeRecipient(list []Recipient, publicKey string) ([]Recipient, error) {
	for i, existing := range list {
		if existing.PublicKey == publicKey {
			out := make([]Recipient, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", verrors.ErrRecipientNotFound, publicKey)
}
