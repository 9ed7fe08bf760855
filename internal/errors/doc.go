// Package errors provides typed error values for vaultic.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Configuration errors: project state and config issues (ErrInvalidConfig)
//   - Crypto errors: encryption/decryption failures (ErrKeyNotAuthorized,
//     ErrCiphertextCorrupt, ErrPrivateKeyNotFound, ErrEmptyRecipientList)
//   - Graph errors: inheritance problems (ErrCircularInheritance, ErrEnvironmentNotFound)
//   - File errors: file system issues (ErrFileNotFound)
//
// Graph errors carry structured context. CircularInheritanceError lists the
// cycle members and EnvironmentNotFoundError lists the defined environments.
// Both match their sentinel with errors.Is:
//
//	var nf *errors.EnvironmentNotFoundError
//	if errors.As(err, &nf) {
//	    fmt.Println("valid environments:", nf.Available)
//	}
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("decrypting %s: %w", env, errors.ErrKeyNotAuthorized)
//
// Classify errors in the CLI layer:
//
//	switch verrors.KindOf(err) {
//	case verrors.KindGraph:
//	    // Point the user at .vaultic/config.toml
//	}
package errors
