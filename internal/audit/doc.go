// Package audit records who did what to a vaultic project.
//
// Entries are appended as JSON Lines to .vaultic/audit.log (configurable in
// the [audit] section of config.toml). Each entry carries a UUID, a UTC
// timestamp with microseconds, the git author, the action, the files it
// touched and, for writes, a multihash of the resulting ciphertext.
//
// # Failure Handling
//
// Audit logging is best-effort. Log.Record passes write failures to OnError
// and returns; operations never fail because the audit log could not be
// written.
//
// # Reading Logs
//
// ReadEntries parses the log, skipping malformed lines left by partial
// writes. Filter narrows entries by author, date and count.
package audit
