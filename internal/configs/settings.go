package configs

import (
	"fmt"
	"os"
	"path/filepath"

	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	"github.com/SoftDryzz/vaultic/internal/utils"
)

const (
	ConfigFileName     = "config.toml"
	RecipientsFileName = "recipients.txt"
	IdentityFileName   = "identity.txt"

	// IdentityEnvVar overrides the location of the user's private key.
	IdentityEnvVar = "VAULTIC_IDENTITY"

	// GPGBinaryEnvVar overrides the gpg executable.
	GPGBinaryEnvVar = "VAULTIC_GPG"
)

type UserSettings struct {
	ConfigDir    string
	IdentityPath string
	Username     string
}

type ProjectSettings struct {
	ProjectName    string
	ProjectPath    string
	VaulticPath    string
	RecipientsPath string
	ConfigPath     string
}

// LoadUserSettings resolves per-user paths. The identity lives at
// $XDG_CONFIG_HOME/vaultic/identity.txt unless VAULTIC_IDENTITY is set.
func LoadUserSettings() (*UserSettings, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("error getting home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	configDir := filepath.Join(configHome, "vaultic")

	identityPath := os.Getenv(IdentityEnvVar)
	if identityPath == "" {
		identityPath = filepath.Join(configDir, IdentityFileName)
	}

	username, err := utils.GetUsername()
	if err != nil {
		username = "unknown"
	}

	return &UserSettings{
		ConfigDir:    configDir,
		IdentityPath: identityPath,
		Username:     username,
	}, nil
}

// NewProjectSettings returns the settings of a project rooted at root.
func NewProjectSettings(root string) *ProjectSettings {
	vaulticPath := filepath.Join(root, utils.ProjectDirName)
	return &ProjectSettings{
		ProjectName:    filepath.Base(root),
		ProjectPath:    root,
		VaulticPath:    vaulticPath,
		RecipientsPath: filepath.Join(vaulticPath, RecipientsFileName),
		ConfigPath:     filepath.Join(vaulticPath, ConfigFileName),
	}
}

// FindProjectSettings walks up from start looking for a .vaultic directory.
func FindProjectSettings(start string) (*ProjectSettings, error) {
	root, err := utils.FindProjectRoot(start)
	if err != nil {
		return nil, fmt.Errorf("error getting project root: %w", err)
	}
	if root == "" {
		return nil, verrors.ErrProjectNotInitialized
	}
	return NewProjectSettings(root), nil
}

// AuditLogPath returns where audit entries for this project are written.
func (p *ProjectSettings) AuditLogPath(config *AppConfig) string {
	name := DefaultAuditLog
	if config != nil && config.Audit.LogFile != "" {
		name = config.Audit.LogFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.VaulticPath, name)
}

// ProjectPathFor resolves a user-supplied path against the project root.
func (p *ProjectSettings) ProjectPathFor(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ProjectPath, path)
}
