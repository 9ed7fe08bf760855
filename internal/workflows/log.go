package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SoftDryzz/vaultic/internal/audit"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	Common

	// Author filters by author name or e-mail (case-insensitive substring).
	Author string

	// Since keeps entries at or after this date (YYYY-MM-DD or RFC3339).
	Since string

	// Actions filters by action names (comma-separated).
	Actions string

	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	// Entries are the filtered audit log entries.
	Entries []audit.Entry

	// Total is the number of entries before filtering.
	Total int

	LogPath string
	Enabled bool
}

// Log reads and filters the project's audit log. A missing log yields no
// entries.
//
// Returns ErrProjectNotInitialized if no .vaultic directory is found.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	var since time.Time
	if opts.Since != "" {
		t, err := audit.ParseSince(opts.Since)
		if err != nil {
			return nil, err
		}
		since = t
	}

	p, err := loadProject(opts.Common)
	if err != nil {
		return nil, err
	}

	entries, err := audit.ReadEntries(p.audit.Path)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{
		Total:   len(entries),
		LogPath: p.audit.Path,
		Enabled: p.audit.Enabled,
	}

	if opts.Actions != "" {
		entries = filterByActions(entries, strings.Split(opts.Actions, ","))
	}

	filtered := audit.Filter(entries, audit.Query{
		Author: opts.Author,
		Since:  since,
		Limit:  opts.Limit,
	})

	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	result.Entries = filtered
	return result, nil
}

func filterByActions(entries []audit.Entry, actions []string) []audit.Entry {
	set := make(map[audit.Action]bool)
	for _, a := range actions {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			set[audit.Action(a)] = true
		}
	}

	var result []audit.Entry
	for _, e := range entries {
		if set[e.Action] {
			result = append(result, e)
		}
	}
	return result
}

// FormatDateTime formats an entry timestamp as YYYY-MM-DD HH:MM:SS in UTC.
func FormatDateTime(e audit.Entry) string {
	t := e.Time()
	if t.IsZero() {
		if len(e.Timestamp) >= 19 {
			return e.Timestamp[:19]
		}
		return e.Timestamp
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatDetails summarizes an entry for one line of output.
func FormatDetails(e audit.Entry) string {
	if e.Detail != "" {
		return e.Detail
	}
	switch len(e.Files) {
	case 0:
		return ""
	case 1, 2, 3:
		return strings.Join(e.Files, ", ")
	default:
		return fmt.Sprintf("%d files", len(e.Files))
	}
}
