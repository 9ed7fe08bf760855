// Package workflows provides high-level orchestration for vaultic commands.
//
// Workflows coordinate multiple operations across packages (configs, secrets,
// environments, drift, audit) to implement complete user-facing features.
// Each workflow handles a single command's business logic, independent of
// CLI concerns like flag parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else: locating .vaultic by walking up from
// the working directory, loading config.toml and recipients.txt, choosing
// the cipher, decrypting and encrypting, and recording audit entries.
//
// # Available Workflows
//
//   - Init: creates .vaultic and registers the user's key
//   - Encrypt: encrypts a file as an environment layer, or re-encrypts all
//   - Decrypt: writes the plaintext of one layer
//   - Resolve: merges an inheritance chain in memory and writes one output
//   - KeysSetup, KeysAdd, KeysRemove, KeysList: manage recipients
//   - Diff, Check: compare variable sets and templates
//   - Log, Status: read the audit log and summarize the project
//   - Doctor, Clean: run health checks and remove orphaned ciphertexts
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.Resolve(ctx, opts)
//	var cycle *verrors.CircularInheritanceError
//	if errors.As(err, &cycle) {
//	    // Show cycle.Chain
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancellation is only checked between environments; each file write is
// atomic on its own.
package workflows
