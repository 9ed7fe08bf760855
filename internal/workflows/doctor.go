package workflows

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/SoftDryzz/vaultic/internal/configs"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/secrets"
	"github.com/bmatcuk/doublestar/v4"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// HealthCheck holds the result of a single health check.
type HealthCheck struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []HealthCheck `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	Common
}

// Doctor runs health checks on the project.
//
// The doctor workflow checks:
//   - config.toml validity, including the inheritance graph
//   - cipher backend availability
//   - private key existence and permissions
//   - the recipient list, and whether the user is on it
//   - ciphertexts encrypted for a stale recipient list, and orphans
//   - .gitignore coverage of .env
//   - plaintext env files inside .vaultic
//
// Only the configuration check runs when the project cannot be loaded.
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	p, err := loadProject(opts.Common)
	results := []HealthCheck{checkProjectConfig(p, err)}

	if p != nil {
		checks := []func(*project, Common) HealthCheck{
			checkCipher,
			checkPrivateKey,
			checkRecipients,
			checkCiphertexts,
			checkGitignore,
			checkPlaintextInVaultic,
		}
		for _, check := range checks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results = append(results, check(p, opts.Common))
		}
	}

	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}, nil
}

func checkProjectConfig(p *project, err error) HealthCheck {
	const name = "Project configuration"
	switch {
	case err == nil:
		return HealthCheck{
			Name:    name,
			Status:  CheckPass,
			Message: fmt.Sprintf("config.toml is valid (%d environment(s))", len(p.config.Environments)),
		}
	case errors.Is(err, verrors.ErrProjectNotInitialized):
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    "No .vaultic directory found",
			Suggestion: "Run 'vaultic init' to initialize a project",
		}
	}
	return HealthCheck{
		Name:       name,
		Status:     CheckError,
		Message:    err.Error(),
		Suggestion: "Fix .vaultic/config.toml",
	}
}

func checkCipher(p *project, c Common) HealthCheck {
	const name = "Cipher backend"
	svc, err := p.service(c)
	if err != nil {
		return HealthCheck{Name: name, Status: CheckError, Message: err.Error()}
	}
	if gpg, ok := svc.Cipher().(*secrets.GPGCipher); ok && !gpg.Available() {
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    "gpg is not available",
			Suggestion: fmt.Sprintf("Install GnuPG or set %s to its path", configs.GPGBinaryEnvVar),
		}
	}
	return HealthCheck{Name: name, Status: CheckPass, Message: "Using " + svc.Cipher().Name()}
}

func checkPrivateKey(p *project, _ Common) HealthCheck {
	const name = "Private key"
	if p.config.Vaultic.DefaultCipher == string(secrets.SchemeGPG) {
		return HealthCheck{Name: name, Status: CheckPass, Message: "Private keys are managed by gpg"}
	}

	path := p.user.IdentityPath
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    "No private key at " + path,
			Suggestion: "Run 'vaultic keys setup' to create one",
		}
	}
	if err != nil {
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat private key: %v", err),
			Suggestion: "Check that the private key file is accessible",
		}
	}

	// Windows does not report POSIX permissions.
	if mode := info.Mode().Perm(); runtime.GOOS != "windows" && mode != 0600 {
		return HealthCheck{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Private key has insecure permissions (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s' to fix permissions", path),
		}
	}
	return HealthCheck{Name: name, Status: CheckPass, Message: "Private key found with correct permissions"}
}

func checkRecipients(p *project, _ Common) HealthCheck {
	const name = "Recipients"
	recipients, err := p.keyStore().List()
	if err != nil {
		return HealthCheck{Name: name, Status: CheckError, Message: err.Error()}
	}
	if len(recipients) == 0 {
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    "No recipients configured",
			Suggestion: "Run 'vaultic keys add <public-key>'",
		}
	}

	if p.config.Vaultic.DefaultCipher == string(secrets.SchemeNative) {
		id, err := secrets.LoadIdentity(secrets.PrivateKeySource{Path: p.user.IdentityPath})
		if err == nil {
			self := id.PublicKey()
			id.Zero()
			found := false
			for _, r := range recipients {
				if r.PublicKey == self {
					found = true
				}
			}
			if !found {
				return HealthCheck{
					Name:       name,
					Status:     CheckWarning,
					Message:    "Your key is not a recipient",
					Suggestion: "Ask an admin to run 'vaultic keys add " + self + "'",
				}
			}
		}
	}
	return HealthCheck{Name: name, Status: CheckPass, Message: fmt.Sprintf("%d recipient(s) configured", len(recipients))}
}

// checkCiphertexts flags envelopes whose recipient count differs from
// recipients.txt, which means keys changed since the last encrypt --all.
func checkCiphertexts(p *project, c Common) HealthCheck {
	const name = "Encrypted files"
	svc, err := p.service(c)
	if err != nil {
		return HealthCheck{Name: name, Status: CheckError, Message: err.Error()}
	}
	recipients, err := p.keyStore().List()
	if err != nil {
		return HealthCheck{Name: name, Status: CheckError, Message: err.Error()}
	}

	var encrypted, stale []string
	for _, env := range p.config.EnvironmentNames() {
		data, err := os.ReadFile(svc.CiphertextPath(env))
		if err != nil {
			continue
		}
		encrypted = append(encrypted, env)
		if svc.Cipher().Scheme() != secrets.SchemeNative {
			continue
		}
		if n, err := secrets.EnvelopeRecipientCount(data); err == nil && n != len(recipients) {
			stale = append(stale, env)
		}
	}

	orphans, err := secrets.OrphanCiphertexts(p.settings.VaulticPath, p.knownCiphertexts(svc))
	if err != nil {
		return HealthCheck{Name: name, Status: CheckError, Message: err.Error()}
	}

	switch {
	case len(stale) > 0:
		return HealthCheck{
			Name:       name,
			Status:     CheckWarning,
			Message:    "Encrypted for an outdated recipient list: " + strings.Join(stale, ", "),
			Suggestion: "Run 'vaultic encrypt --all'",
		}
	case len(orphans) > 0:
		return HealthCheck{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Found %d ciphertext(s) no environment uses", len(orphans)),
			Suggestion: "Run 'vaultic clean' to remove them",
		}
	case len(encrypted) == 0:
		return HealthCheck{
			Name:       name,
			Status:     CheckWarning,
			Message:    "No environment is encrypted yet",
			Suggestion: "Run 'vaultic encrypt .env --env " + p.config.ResolveEnv("") + "'",
		}
	}
	return HealthCheck{Name: name, Status: CheckPass, Message: fmt.Sprintf("%d environment(s) encrypted", len(encrypted))}
}

func checkGitignore(p *project, _ Common) HealthCheck {
	const name = "Gitignore configuration"
	path := filepath.Join(p.settings.ProjectPath, ".gitignore")

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return HealthCheck{
			Name:       name,
			Status:     CheckWarning,
			Message:    "No .gitignore file found",
			Suggestion: "Create a .gitignore containing .env",
		}
	}
	if err != nil {
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to read .gitignore: %v", err),
			Suggestion: "Check that the .gitignore file is accessible",
		}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.Contains(line, ".env") {
			return HealthCheck{Name: name, Status: CheckPass, Message: ".env is ignored by git"}
		}
	}
	return HealthCheck{
		Name:       name,
		Status:     CheckWarning,
		Message:    ".env patterns not found in .gitignore",
		Suggestion: "Add .env to .gitignore",
	}
}

// checkPlaintextInVaultic looks for env files in .vaultic, which is
// committed. Templates are expected there and skipped.
func checkPlaintextInVaultic(p *project, _ Common) HealthCheck {
	const name = "Plaintext in .vaultic"
	matches, err := doublestar.Glob(os.DirFS(p.settings.VaulticPath), "**/{*.env,.env*}", doublestar.WithFilesOnly())
	if err != nil {
		return HealthCheck{Name: name, Status: CheckError, Message: err.Error()}
	}

	var plaintext []string
	for _, m := range matches {
		switch {
		case strings.HasSuffix(m, secrets.CiphertextExt),
			strings.HasSuffix(m, ".template"),
			strings.HasSuffix(m, ".example"),
			strings.HasSuffix(m, ".sample"):
			continue
		}
		plaintext = append(plaintext, m)
	}

	if len(plaintext) > 0 {
		return HealthCheck{
			Name:       name,
			Status:     CheckError,
			Message:    "Plaintext env files inside .vaultic: " + strings.Join(plaintext, ", "),
			Suggestion: "Encrypt them with 'vaultic encrypt' and delete the plaintext",
		}
	}
	return HealthCheck{Name: name, Status: CheckPass, Message: "No plaintext env files in .vaultic"}
}

func calculateDoctorSummary(results []HealthCheck) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
