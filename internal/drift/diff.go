package drift

import (
	"sort"

	"github.com/SoftDryzz/vaultic/internal/dotenv"
)

type Kind string

const (
	Added    Kind = "added"
	Removed  Kind = "removed"
	Modified Kind = "modified"
)

// Entry is one differing variable. Left or Right is empty when the key is
// absent on that side.
type Entry struct {
	Key   string
	Kind  Kind
	Left  string
	Right string
}

type DiffResult struct {
	LeftName  string
	RightName string
	Entries   []Entry // Sorted by key.
}

func (r *DiffResult) Empty() bool {
	return len(r.Entries) == 0
}

// Keys returns the keys of the given kind, sorted.
func (r *DiffResult) Keys(kind Kind) []string {
	var keys []string
	for _, e := range r.Entries {
		if e.Kind == kind {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

func (r *DiffResult) Count(kind Kind) int {
	return len(r.Keys(kind))
}

// Diff compares right against left. A key only in right is Added, a key only
// in left is Removed.
func Diff(leftName string, left *dotenv.Env, rightName string, right *dotenv.Env) *DiffResult {
	if left == nil {
		left = dotenv.New()
	}
	if right == nil {
		right = dotenv.New()
	}

	result := &DiffResult{LeftName: leftName, RightName: rightName}

	for _, key := range left.Keys() {
		lv, _ := left.Get(key)
		rv, ok := right.Get(key)
		switch {
		case !ok:
			result.Entries = append(result.Entries, Entry{Key: key, Kind: Removed, Left: lv})
		case lv != rv:
			result.Entries = append(result.Entries, Entry{Key: key, Kind: Modified, Left: lv, Right: rv})
		}
	}
	for _, key := range right.Keys() {
		if left.Has(key) {
			continue
		}
		rv, _ := right.Get(key)
		result.Entries = append(result.Entries, Entry{Key: key, Kind: Added, Right: rv})
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		return result.Entries[i].Key < result.Entries[j].Key
	})
	return result
}
