package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/configs"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/secrets"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

const templateStub = "# Add your environment variables here\n"

// InitOptions configures the init workflow.
type InitOptions struct {
	Common

	// Cipher is "native" or "gpg". Empty means native.
	Cipher string

	// GenerateKey creates a native identity when the user has none.
	GenerateKey bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	ProjectPath string
	ProjectUUID string
	Cipher      string

	// PublicKey is the key registered as the first recipient. Empty when no
	// key was registered.
	PublicKey    string
	IdentityPath string

	// KeyGenerated is true when a new identity was written to IdentityPath.
	KeyGenerated bool

	TemplateCreated  bool
	GitignoreEntries []string
}

// Init creates .vaultic in the working directory with a base and a dev
// environment and an empty recipient list. With the native cipher the
// user's public key is registered as the first recipient, generating an
// identity first when GenerateKey is set.
//
// Returns ErrProjectAlreadyInitialized if .vaultic already exists.
// Returns ErrUnknownScheme if Cipher is neither native nor gpg.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	log := opts.Logger

	wd, err := opts.workDir()
	if err != nil {
		return nil, err
	}
	settings := configs.NewProjectSettings(wd)

	if _, err := os.Stat(settings.VaulticPath); err == nil {
		return nil, verrors.ErrProjectAlreadyInitialized
	}

	scheme, err := secrets.ParseScheme(opts.Cipher)
	if err != nil {
		return nil, err
	}

	user, err := configs.LoadUserSettings()
	if err != nil {
		return nil, fmt.Errorf("loading user settings: %w", err)
	}

	cleanupNeeded := false
	defer func() {
		if cleanupNeeded {
			os.RemoveAll(settings.VaulticPath)
		}
	}()

	if err := secrets.EnsureProjectDir(settings.VaulticPath); err != nil {
		return nil, err
	}
	cleanupNeeded = true
	log.Infof("Created %s", settings.VaulticPath)

	config := configs.NewProjectConfig(string(scheme))
	if err := configs.SaveProjectConfig(settings.ConfigPath, config); err != nil {
		return nil, err
	}

	// #nosec G306 -- the recipient list holds public keys only.
	if err := utils.WriteFileAtomic(settings.RecipientsPath, secrets.FormatRecipients(nil), 0644); err != nil {
		return nil, fmt.Errorf("creating recipients file: %w", err)
	}

	result := &InitResult{
		ProjectPath:  wd,
		ProjectUUID:  config.Vaultic.ProjectUUID,
		Cipher:       string(scheme),
		IdentityPath: user.IdentityPath,
	}

	if scheme == secrets.SchemeNative {
		id, generated, err := loadOrCreateIdentity(user.IdentityPath, opts.GenerateKey)
		if err != nil {
			return nil, err
		}
		if id != nil {
			_, email := utils.GitAuthor()
			if err := secrets.NewFileKeyStore(settings.RecipientsPath).Add(id.Recipient(email)); err != nil {
				id.Zero()
				return nil, fmt.Errorf("registering your public key: %w", err)
			}
			result.PublicKey = id.PublicKey()
			result.KeyGenerated = generated
			id.Zero()
		}
	}

	templatePath := filepath.Join(wd, ".env.template")
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		// #nosec G306 -- the template holds variable names, not values.
		if err := os.WriteFile(templatePath, []byte(templateStub), 0644); err != nil {
			return nil, fmt.Errorf("creating .env.template: %w", err)
		}
		result.TemplateCreated = true
	}

	added, err := utils.EnsureGitignore(wd, []string{".env"})
	if err != nil {
		return nil, err
	}
	result.GitignoreEntries = added

	cleanupNeeded = false

	newAuditLog(settings.AuditLogPath(config), config.Audit.Enabled, log).Record(audit.Entry{
		Action: audit.ActionInit,
		Files:  []string{configs.ConfigFileName, configs.RecipientsFileName},
		Detail: fmt.Sprintf("cipher %s", scheme),
	})

	return result, nil
}

// loadOrCreateIdentity returns the identity at path. A missing identity is
// generated when generate is set; otherwise nil is returned.
func loadOrCreateIdentity(path string, generate bool) (*secrets.Identity, bool, error) {
	id, err := secrets.LoadIdentity(secrets.PrivateKeySource{Path: path})
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, verrors.ErrPrivateKeyNotFound) {
		return nil, false, err
	}
	if !generate {
		return nil, false, nil
	}

	id, err = secrets.GenerateIdentity()
	if err != nil {
		return nil, false, err
	}
	if err := secrets.SaveIdentity(path, id); err != nil {
		id.Zero()
		return nil, false, err
	}
	return id, true, nil
}
