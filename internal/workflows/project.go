package workflows

import (
	"fmt"
	"os"
	"runtime"

	"github.com/SoftDryzz/vaultic/internal/audit"
	"github.com/SoftDryzz/vaultic/internal/configs"
	"github.com/SoftDryzz/vaultic/internal/dotenv"
	"github.com/SoftDryzz/vaultic/internal/environments"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
	logger "github.com/SoftDryzz/vaultic/internal/logging"
	"github.com/SoftDryzz/vaultic/internal/secrets"
)

// Common holds the settings every workflow shares.
type Common struct {
	// WorkDir is where the search for .vaultic starts. Empty means the
	// current directory.
	WorkDir string

	// GPGBinary overrides the gpg executable for projects using the gpg cipher.
	GPGBinary string

	Logger logger.Logger
}

func (c Common) workDir() (string, error) {
	if c.WorkDir != "" {
		return c.WorkDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}

// project is a loaded .vaultic project.
type project struct {
	settings *configs.ProjectSettings
	config   *configs.AppConfig
	user     *configs.UserSettings
	log      logger.Logger
	audit    *audit.Log
}

func loadProject(c Common) (*project, error) {
	wd, err := c.workDir()
	if err != nil {
		return nil, err
	}

	settings, err := configs.FindProjectSettings(wd)
	if err != nil {
		return nil, err
	}

	config, err := configs.LoadProjectConfig(settings.ConfigPath)
	if err != nil {
		return nil, err
	}

	user, err := configs.LoadUserSettings()
	if err != nil {
		return nil, fmt.Errorf("loading user settings: %w", err)
	}

	c.Logger.Debugf("Project root: %s", settings.ProjectPath)
	c.Logger.Debugf("Cipher: %s, environments: %v", config.Vaultic.DefaultCipher, config.EnvironmentNames())

	p := &project{
		settings: settings,
		config:   config,
		user:     user,
		log:      c.Logger,
	}
	p.audit = newAuditLog(settings.AuditLogPath(config), config.Audit.Enabled, c.Logger)
	return p, nil
}

func newAuditLog(path string, enabled bool, log logger.Logger) *audit.Log {
	l := audit.NewLog(path, enabled)
	l.OnError = func(err error) {
		log.Warnf("Failed to write audit log: %v", err)
	}
	return l
}

func (p *project) keyStore() *secrets.FileKeyStore {
	return secrets.NewFileKeyStore(p.settings.RecipientsPath)
}

func (p *project) service(c Common) (*secrets.Service, error) {
	scheme, err := secrets.ParseScheme(p.config.Vaultic.DefaultCipher)
	if err != nil {
		return nil, err
	}
	cipher, err := secrets.NewCipher(scheme, secrets.CipherOptions{GPGBinary: c.GPGBinary})
	if err != nil {
		return nil, err
	}

	return secrets.NewService(cipher, p.keyStore(), p.settings.VaulticPath,
		secrets.WithRecorder(p.audit),
		secrets.WithLogger(p.log),
		secrets.WithFileNamer(p.config.FileFor),
	), nil
}

// knownCiphertexts returns the ciphertext name of every environment.
func (p *project) knownCiphertexts(svc *secrets.Service) []string {
	names := p.config.EnvironmentNames()
	known := make([]string, 0, len(names))
	for _, name := range names {
		known = append(known, svc.CiphertextName(name))
	}
	return known
}

// privateKey picks the key to decrypt with. Data wins over an explicit path,
// which wins over the user's identity file. The gpg cipher defaults to the
// user's keyring.
func (p *project) privateKey(path string, data []byte) secrets.PrivateKeySource {
	if len(data) > 0 {
		return secrets.PrivateKeySource{Data: data}
	}
	if path == "" {
		if p.config.Vaultic.DefaultCipher == string(secrets.SchemeGPG) {
			return secrets.PrivateKeySource{}
		}
		path = p.user.IdentityPath
	}
	p.warnPermissions(path)
	return secrets.PrivateKeySource{Path: path}
}

// warnPermissions warns when a private key file is readable by others.
func (p *project) warnPermissions(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		p.log.WarnfAlways("Private key file has overly permissive permissions (%o), consider running 'chmod 600 %s'", mode, path)
	}
}

// checkEnv returns an error naming the defined environments when env is
// not one of them.
func (p *project) checkEnv(env string) error {
	if _, ok := p.config.Environments[env]; ok {
		return nil
	}
	return &verrors.EnvironmentNotFoundError{Name: env, Available: p.config.EnvironmentNames()}
}

// resolver wires decryption into the layer loader. Layers are decrypted in
// memory only.
func (p *project) resolver(svc *secrets.Service, key secrets.PrivateKeySource) (*environments.Resolver, error) {
	graph, err := p.config.Graph()
	if err != nil {
		return nil, err
	}

	load := func(node environments.Node) (*dotenv.Env, error) {
		path := svc.CiphertextPath(node.Name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			p.log.Debugf("No encrypted file for layer %s", node.Name)
			return nil, environments.ErrLayerMissing
		}

		plaintext, err := svc.DecryptToBytes(path, key)
		if err != nil {
			return nil, err
		}
		env, err := dotenv.Parse(plaintext)
		zero(plaintext)
		if err != nil {
			return nil, fmt.Errorf("parsing decrypted %s: %w", node.Name, err)
		}
		return env, nil
	}

	return &environments.Resolver{Graph: graph, Load: load}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
