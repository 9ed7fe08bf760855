// Package configs manages project and user configuration for vaultic.
//
// Project configuration lives in .vaultic/config.toml:
//
//	[vaultic]
//	version = "1"
//	default_cipher = "native"
//	default_env = "dev"
//
//	[environments.base]
//	file = "base.env"
//
//	[environments.dev]
//	file = "dev.env"
//	inherits = "base"
//
//	[audit]
//	enabled = true
//	log_file = "audit.log"
//
// LoadProjectConfig validates field constraints, rejects configs written by a
// newer vaultic and checks that the inheritance graph has no cycles or
// dangling parents. All failures wrap errors.ErrInvalidConfig.
//
// TOML tables are unordered, so Nodes and EnvironmentNames return environments
// sorted by name.
//
// # Settings
//
// FindProjectSettings walks up the directory tree to the nearest .vaultic
// directory. LoadUserSettings locates the private key, honoring
// VAULTIC_IDENTITY and XDG_CONFIG_HOME.
package configs
