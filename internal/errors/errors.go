package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors indicate the project setup or environment graph is unusable.
var (
	// ErrProjectNotInitialized indicates the project has no .vaultic directory.
	ErrProjectNotInitialized = errors.New("vaultic has not been initialized")

	// ErrProjectAlreadyInitialized indicates .vaultic already exists.
	ErrProjectAlreadyInitialized = errors.New("vaultic has already been initialized")

	// ErrInvalidConfig indicates the configuration is malformed or violates a constraint.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownScheme indicates a cipher scheme name that no backend implements.
	ErrUnknownScheme = errors.New("unknown cipher scheme")
)

// Cryptographic errors indicate failures during encryption or decryption operations.
var (
	// ErrKeyNotAuthorized indicates the private key is not among the file's recipients.
	ErrKeyNotAuthorized = errors.New("no matching key found: your key is not a recipient of this file")

	// ErrCiphertextCorrupt indicates the ciphertext is malformed or failed authentication.
	ErrCiphertextCorrupt = errors.New("ciphertext is corrupt or was not produced by vaultic")

	// ErrPrivateKeyNotFound indicates the user's private key could not be located.
	ErrPrivateKeyNotFound = errors.New("private key not found")

	// ErrInvalidPrivateKey indicates the private key is malformed or unsupported.
	ErrInvalidPrivateKey = errors.New("invalid or unsupported private key format")

	// ErrEmptyRecipientList indicates an encryption was requested with nobody to encrypt for.
	ErrEmptyRecipientList = errors.New("no recipients configured")

	// ErrInvalidRecipient indicates a public key does not match its scheme's format.
	ErrInvalidRecipient = errors.New("invalid recipient public key")

	// ErrExternalToolUnavailable indicates the external keyring tool could not be run.
	ErrExternalToolUnavailable = errors.New("external encryption tool is not available")
)

// Graph errors indicate problems with environment inheritance.
var (
	// ErrCircularInheritance indicates the inheritance chain loops back on itself.
	ErrCircularInheritance = errors.New("circular inheritance detected")

	// ErrEnvironmentNotFound indicates a referenced environment is not defined.
	ErrEnvironmentNotFound = errors.New("environment not found")
)

// Recipient errors indicate issues with the authorized key list.
var (
	// ErrRecipientNotFound indicates the public key is not in the recipients list.
	ErrRecipientNotFound = errors.New("recipient not found")
)

// File errors indicate issues with file discovery or access.
var (
	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrTemplateNotFound indicates no template file could be discovered.
	ErrTemplateNotFound = errors.New("no template file found")
)

// CircularInheritanceError names the environments that form a cycle.
type CircularInheritanceError struct {
	// Chain lists the environments in walk order, repeating the first at the end.
	Chain []string
}

func (e *CircularInheritanceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCircularInheritance, strings.Join(e.Chain, " -> "))
}

func (e *CircularInheritanceError) Is(target error) bool {
	return target == ErrCircularInheritance
}

// EnvironmentNotFoundError names the missing environment and the valid ones.
type EnvironmentNotFoundError struct {
	Name      string
	Available []string
}

func (e *EnvironmentNotFoundError) Error() string {
	available := "(none)"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("%s: %q (available: %s)", ErrEnvironmentNotFound, e.Name, available)
}

func (e *EnvironmentNotFoundError) Is(target error) bool {
	return target == ErrEnvironmentNotFound
}

// Kind is a coarse category used by the command layer to pick a message.
type Kind string

const (
	KindConfig  Kind = "config"
	KindCrypto  Kind = "crypto"
	KindGraph   Kind = "graph"
	KindIO      Kind = "io"
	KindUnknown Kind = "unknown"
)

// OpError wraps an underlying error with the failing operation and a path.
type OpError struct {
	Op   string
	Kind Kind
	Path string // Optional.
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := e.Op
	if e.Path != "" {
		base += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		base += ": " + e.Err.Error()
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf classifies err. An explicit OpError kind wins over sentinel matching.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var oe *OpError
	if errors.As(err, &oe) && oe.Kind != "" {
		return oe.Kind
	}

	switch {
	case errors.Is(err, ErrCircularInheritance), errors.Is(err, ErrEnvironmentNotFound):
		return KindGraph
	case errors.Is(err, ErrKeyNotAuthorized), errors.Is(err, ErrCiphertextCorrupt),
		errors.Is(err, ErrPrivateKeyNotFound), errors.Is(err, ErrInvalidPrivateKey),
		errors.Is(err, ErrEmptyRecipientList), errors.Is(err, ErrInvalidRecipient),
		errors.Is(err, ErrExternalToolUnavailable):
		return KindCrypto
	case errors.Is(err, ErrProjectNotInitialized), errors.Is(err, ErrProjectAlreadyInitialized),
		errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnknownScheme):
		return KindConfig
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrTemplateNotFound):
		return KindIO
	}
	return KindUnknown
}
