package configs

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/SoftDryzz/vaultic/internal/environments"
	verrors "github.com/SoftDryzz/vaultic/internal/errors"
)

const (
	// SupportedVersion is the newest config format this build understands.
	SupportedVersion = 1

	DefaultCipher      = "native"
	DefaultEnvironment = "dev"
	DefaultAuditLog    = "audit.log"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

var validate = newValidator()

// newValidator reports fields by their TOML key rather than the Go field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AppConfig mirrors .vaultic/config.toml.
type AppConfig struct {
	Vaultic      Vaultic                `toml:"vaultic"`
	Environments map[string]Environment `toml:"environments" validate:"dive"`
	Audit        Audit                  `toml:"audit"`
}

type Vaultic struct {
	Version       string `toml:"version" validate:"required,numeric"`
	ProjectUUID   string `toml:"project_uuid,omitempty" validate:"omitempty,uuid"`
	DefaultCipher string `toml:"default_cipher" validate:"required,oneof=native gpg"`
	DefaultEnv    string `toml:"default_env,omitempty"`
	Template      string `toml:"template,omitempty"`
}

type Environment struct {
	File     string `toml:"file,omitempty"`
	Inherits string `toml:"inherits,omitempty"`
	Template string `toml:"template,omitempty"`
}

type Audit struct {
	Enabled bool   `toml:"enabled"`
	LogFile string `toml:"log_file,omitempty"`
}

// NewProjectConfig returns the config written by `vaultic init`:
// a base environment and a dev environment inheriting from it.
func NewProjectConfig(cipher string) *AppConfig {
	if cipher == "" {
		cipher = DefaultCipher
	}
	return &AppConfig{
		Vaultic: Vaultic{
			Version:       strconv.Itoa(SupportedVersion),
			ProjectUUID:   GenerateProjectUUID(),
			DefaultCipher: cipher,
			DefaultEnv:    DefaultEnvironment,
		},
		Environments: map[string]Environment{
			"base": {File: "base.env"},
			"dev":  {File: "dev.env", Inherits: "base"},
		},
		Audit: Audit{Enabled: true, LogFile: DefaultAuditLog},
	}
}

// GenerateProjectUUID generates a new UUID for the project.
func GenerateProjectUUID() string {
	return uuid.New().String()
}

// LoadProjectConfig reads and validates the config at path.
func LoadProjectConfig(path string) (*AppConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s is missing", verrors.ErrProjectNotInitialized, path)
	}

	config := &AppConfig{
		Vaultic: Vaultic{DefaultCipher: DefaultCipher},
		Audit:   Audit{Enabled: true, LogFile: DefaultAuditLog},
	}
	if err := LoadTOML(path, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", verrors.ErrInvalidConfig, path, err)
	}
	if config.Environments == nil {
		config.Environments = make(map[string]Environment)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveProjectConfig validates config and writes it to path.
func SaveProjectConfig(path string, config *AppConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save project config: %w", err)
	}
	return nil
}

// Validate checks field constraints, the format version and the inheritance graph.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", verrors.ErrInvalidConfig, describeValidation(err))
	}

	version, _ := strconv.Atoi(c.Vaultic.Version)
	if version > SupportedVersion {
		return fmt.Errorf("%w: config version %d is newer than supported version %d, upgrade vaultic",
			verrors.ErrInvalidConfig, version, SupportedVersion)
	}

	for name, env := range c.Environments {
		if !envNamePattern.MatchString(name) {
			return fmt.Errorf("%w: invalid environment name %q", verrors.ErrInvalidConfig, name)
		}
		if strings.ContainsAny(env.File, `/\`) {
			return fmt.Errorf("%w: environment %q: file %q must be a plain file name", verrors.ErrInvalidConfig, name, env.File)
		}
	}

	owners := make(map[string]string, len(c.Environments))
	for _, node := range c.Nodes() {
		if other, ok := owners[node.File]; ok {
			return fmt.Errorf("%w: environments %q and %q both use file %q", verrors.ErrInvalidConfig, other, node.Name, node.File)
		}
		owners[node.File] = node.Name
	}

	if c.Vaultic.DefaultEnv != "" && len(c.Environments) > 0 {
		if _, ok := c.Environments[c.Vaultic.DefaultEnv]; !ok {
			return fmt.Errorf("%w: default_env %q is not a defined environment", verrors.ErrInvalidConfig, c.Vaultic.DefaultEnv)
		}
	}

	graph, err := environments.NewGraph(c.Nodes())
	if err != nil {
		return err
	}
	return graph.Validate()
}

// Nodes returns the environments sorted by name.
func (c *AppConfig) Nodes() []environments.Node {
	nodes := make([]environments.Node, 0, len(c.Environments))
	for _, name := range c.EnvironmentNames() {
		env := c.Environments[name]
		nodes = append(nodes, environments.Node{
			Name:     name,
			File:     c.FileFor(name),
			Parent:   env.Inherits,
			Template: env.Template,
		})
	}
	return nodes
}

// EnvironmentNames returns the defined environment names in sorted order.
func (c *AppConfig) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileFor returns the plaintext file name of env, defaulting to "<env>.env".
func (c *AppConfig) FileFor(env string) string {
	if e, ok := c.Environments[env]; ok && e.File != "" {
		return e.File
	}
	return env + ".env"
}

// Graph builds the inheritance graph of the configured environments.
func (c *AppConfig) Graph() (*environments.Graph, error) {
	return environments.NewGraph(c.Nodes())
}

// ResolveEnv returns env, or the configured default when env is empty.
func (c *AppConfig) ResolveEnv(env string) string {
	if env != "" {
		return env
	}
	if c.Vaultic.DefaultEnv != "" {
		return c.Vaultic.DefaultEnv
	}
	return DefaultEnvironment
}

func describeValidation(err error) string {
	var msgs []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := fe.Field()
			switch fe.Tag() {
			case "required":
				msgs = append(msgs, fmt.Sprintf("%s is required", field))
			case "oneof":
				msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
			default:
				msgs = append(msgs, fmt.Sprintf("%s failed %q validation (got %q)", field, fe.Tag(), fe.Value()))
			}
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}
