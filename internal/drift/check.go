package drift

import (
	"sort"
	"strings"

	"github.com/SoftDryzz/vaultic/internal/dotenv"
)

// CheckResult lists the discrepancies between a local file and its template.
// All lists are sorted.
type CheckResult struct {
	Missing      []string // In the template, not in the local file.
	Extra        []string // In the local file, not in the template.
	Empty        []string // Present locally with a blank value.
	TemplateKeys int
}

func (r *CheckResult) OK() bool {
	return r.Issues() == 0
}

func (r *CheckResult) Issues() int {
	return len(r.Missing) + len(r.Extra) + len(r.Empty)
}

// Present is the number of template keys found in the local file.
func (r *CheckResult) Present() int {
	return r.TemplateKeys - len(r.Missing)
}

// Check compares local against template. Template values are ignored; only
// its keys matter.
func Check(local, template *dotenv.Env) *CheckResult {
	if local == nil {
		local = dotenv.New()
	}
	if template == nil {
		template = dotenv.New()
	}

	result := &CheckResult{TemplateKeys: template.Len()}

	for _, key := range template.Keys() {
		if !local.Has(key) {
			result.Missing = append(result.Missing, key)
		}
	}
	for _, key := range local.Keys() {
		if !template.Has(key) {
			result.Extra = append(result.Extra, key)
		}
		if v, _ := local.Get(key); strings.TrimSpace(v) == "" {
			result.Empty = append(result.Empty, key)
		}
	}

	sort.Strings(result.Missing)
	sort.Strings(result.Extra)
	sort.Strings(result.Empty)
	return result
}
