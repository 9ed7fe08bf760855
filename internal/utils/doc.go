// Package utils provides shared utility functions for vaultic.
//
// # Filesystem Utilities
//
//   - FindProjectRoot: walks up directories to find .vaultic
//   - WriteFileAtomic: write-temp-then-rename so a file is never half written
//   - EnsureGitignore: appends missing ignore rules
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//   - GitAuthor: returns git's user.name/user.email for audit entries
//
// # String Utilities
//
//   - FormatPaths, IsValidEmail, Truncate
//
// # I/O and Terminal Utilities
//
//   - ReadStdin: reads piped data such as a private key
//   - IsTerminal, Confirm: interactive prompts
package utils
