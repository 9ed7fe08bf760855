package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SoftDryzz/vaultic/internal/utils"
)

// Action names an audited operation.
type Action string

const (
	ActionInit      Action = "init"
	ActionEncrypt   Action = "encrypt"
	ActionDecrypt   Action = "decrypt"
	ActionReencrypt Action = "reencrypt"
	ActionKeyAdd    Action = "key_add"
	ActionKeyRemove Action = "key_remove"
	ActionCheck     Action = "check"
	ActionDiff      Action = "diff"
	ActionResolve   Action = "resolve"
	ActionClean     Action = "clean"
)

// TimestampFormat is RFC3339 with microseconds, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Author    string   `json:"author"`
	Email     string   `json:"email,omitempty"`
	Action    Action   `json:"action"`
	Files     []string `json:"files,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	StateHash string   `json:"state_hash,omitempty"` // Multihash of the files after the action.
}

// Time parses the entry timestamp. The zero time is returned for bad values.
func (e Entry) Time() time.Time {
	t, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, e.Timestamp)
	}
	return t
}

// Recorder receives audit entries. Recording never fails the caller.
type Recorder interface {
	Record(entry Entry)
}

// Discard is a Recorder that drops every entry.
type Discard struct{}

func (Discard) Record(Entry) {}

// Log appends entries as JSON Lines to a file.
type Log struct {
	Path    string
	Enabled bool

	// OnError receives write failures. Nil drops them.
	OnError func(err error)

	author func() (string, string)
	now    func() time.Time
}

// NewLog returns a Log writing to path. The author of each entry comes from
// git config, falling back to the OS user.
func NewLog(path string, enabled bool) *Log {
	return &Log{
		Path:    path,
		Enabled: enabled,
		author:  utils.GitAuthor,
		now:     time.Now,
	}
}

// Record appends entry when the log is enabled.
// If logging fails, OnError is called but the operation is not interrupted.
func (l *Log) Record(entry Entry) {
	if l == nil || !l.Enabled {
		return
	}
	if err := l.Append(entry); err != nil && l.OnError != nil {
		l.OnError(err)
	}
}

// Append fills the ID, timestamp and author of entry and writes it.
func (l *Log) Append(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == "" {
		now := time.Now
		if l.now != nil {
			now = l.now
		}
		entry.Timestamp = now().UTC().Format(TimestampFormat)
	}
	if entry.Author == "" && l.author != nil {
		entry.Author, entry.Email = l.author()
	}

	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return fmt.Errorf("cannot create audit log directory: %w", err)
	}

	// #nosec G302 -- audit log should be readable by team members.
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open audit log at %s: %w", l.Path, err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize audit entry: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Query selects entries for display.
type Query struct {
	Author string    // Case-insensitive substring of the author name or email.
	Since  time.Time // Zero means no lower bound.
	Limit  int       // Keep only the newest Limit entries. Zero means all.
}

// Filter returns the entries matching q, oldest first.
func Filter(entries []Entry, q Query) []Entry {
	needle := strings.ToLower(strings.TrimSpace(q.Author))

	var out []Entry
	for _, e := range entries {
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Author), needle) &&
			!strings.Contains(strings.ToLower(e.Email), needle) {
			continue
		}
		if !q.Since.IsZero() && e.Time().Before(q.Since) {
			continue
		}
		out = append(out, e)
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// ParseSince accepts a date (2006-01-02, midnight UTC) or an RFC3339 time.
func ParseSince(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD, e.g. 2026-01-15", value)
}

// LastFor returns the newest entry of one of actions that touched file.
func LastFor(entries []Entry, file string, actions ...Action) (Entry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if len(actions) > 0 && !containsAction(actions, e.Action) {
			continue
		}
		for _, f := range e.Files {
			if f == file {
				return e, true
			}
		}
	}
	return Entry{}, false
}

func containsAction(actions []Action, a Action) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}
