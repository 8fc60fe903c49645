// Package config loads and persists forge's configuration: registry
// sources, install defaults, and logging settings.
//
// Configuration is layered: built-in defaults, then the user-scoped file
// (~/.forge/config.toml), then the project-scoped file (.forge/config.toml).
// Later layers override earlier ones. The file on disk is the source of
// truth; every CLI invocation re-reads it.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/forge-stack/forge/internal/errors"
	"github.com/forge-stack/forge/internal/fsx"
)

// RegistryKind selects how a registry is queried.
type RegistryKind string

const (
	// KindManifest is a registry serving a static manifest document over HTTPS.
	KindManifest RegistryKind = "manifest"

	// KindAPI is a full API-based registry. Reserved for a future backend.
	KindAPI RegistryKind = "api"
)

// Scope constants for install targets.
const (
	ScopeGlobal = "global"
	ScopeLocal  = "local"
)

// DefaultCacheTTL is the manifest cache freshness window used when a
// registry does not set cache_ttl_seconds.
const DefaultCacheTTL = 1 * time.Hour

// RegistryConfig describes one configured registry source.
type RegistryConfig struct {
	// Name is the unique registry key.
	Name string `toml:"name" json:"name" yaml:"name"`

	// Kind selects the resolver backend ("manifest" or "api").
	Kind RegistryKind `toml:"kind" json:"kind" yaml:"kind"`

	// URL is the registry manifest (or API base) URL. Must be https://.
	URL string `toml:"url" json:"url" yaml:"url"`

	// Enabled registries participate in resolution and search.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Priority orders registries at the remote tier; lower is checked
	// first. Ties are broken by config file order.
	Priority int `toml:"priority" json:"priority" yaml:"priority"`

	// CacheTTLSeconds is the manifest cache freshness window.
	// Zero means DefaultCacheTTL.
	CacheTTLSeconds int `toml:"cache_ttl_seconds" json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`

	// AuthTokenEnv names an environment variable holding a bearer token
	// sent with requests to this registry. Optional.
	AuthTokenEnv string `toml:"auth_token_env,omitempty" json:"auth_token_env,omitempty" yaml:"auth_token_env,omitempty"`
}

// TTL returns the registry's cache freshness window.
func (r RegistryConfig) TTL() time.Duration {
	if r.CacheTTLSeconds <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// Validate checks a registry entry.
func (r RegistryConfig) Validate() error {
	if r.Name == "" {
		return errors.ConfigMissingField("registries.name")
	}
	if r.Kind != KindManifest && r.Kind != KindAPI {
		return errors.ConfigInvalidValue("registries.kind", fmt.Sprintf("%q is not one of manifest, api", r.Kind))
	}
	if r.URL == "" {
		return errors.ConfigMissingField("registries.url")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return errors.ConfigInvalidValue("registries.url", err.Error())
	}
	if u.Scheme != "https" {
		return errors.ConfigInvalidValue("registries.url", fmt.Sprintf("must use https:// (got %q)", u.Scheme))
	}
	return nil
}

// InstallConfig holds install defaults.
type InstallConfig struct {
	// DefaultScope is where installs land without --global/--local.
	DefaultScope string `toml:"default_scope"`

	// VerifyChecksums enables SHA-256 verification of downloaded content.
	VerifyChecksums bool `toml:"verify_checksums"`

	// AutoInstallDependencies walks and installs declared dependencies.
	AutoInstallDependencies bool `toml:"auto_install_dependencies"`

	// AllowStaleCache falls back to an expired cached manifest when the
	// re-fetch fails, instead of propagating the network error.
	AllowStaleCache bool `toml:"allow_stale_cache"`

	// AutoCache copies remote-resolved packages into the global scope so
	// later resolutions hit tier 2 without network I/O.
	AutoCache bool `toml:"auto_cache"`
}

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for forge.
type Config struct {
	Registries []RegistryConfig `toml:"registries"`
	Install    InstallConfig    `toml:"install"`
	Logging    LoggingConfig    `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Install: InstallConfig{
			DefaultScope:            ScopeGlobal,
			VerifyChecksums:         true,
			AutoInstallDependencies: true,
			AllowStaleCache:         false,
			AutoCache:               false,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// ConfigFileName is the config file name within a scope directory.
const ConfigFileName = "config.toml"

// MetaDir is the directory holding forge state within a scope.
const MetaDir = ".forge"

// GlobalPath returns the user-scoped config file path (~/.forge/config.toml).
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home dir: %w", err)
	}
	return filepath.Join(home, MetaDir, ConfigFileName), nil
}

// ProjectPath returns the project-scoped config file path
// (<dir>/.forge/config.toml).
func ProjectPath(dir string) string {
	return filepath.Join(dir, MetaDir, ConfigFileName)
}

// Load reads one config file, merging over defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from the standard locations:
// defaults -> ~/.forge/config.toml -> <dir>/.forge/config.toml.
// Later configs override earlier ones.
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	globalPath, err := GlobalPath()
	if err == nil {
		if err := mergeFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("global config: %w", err)
		}
	}

	if err := mergeFile(cfg, ProjectPath(dir)); err != nil {
		return nil, fmt.Errorf("project config: %w", err)
	}

	return cfg, nil
}

// mergeFile decodes path over cfg. Sections absent from the file keep
// their current values; a registries array in the file replaces the
// current one entirely (no element-wise merge).
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	var overlay Config
	md, err := toml.Decode(string(data), &overlay)
	if err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	if md.IsDefined("registries") {
		cfg.Registries = overlay.Registries
	}
	if md.IsDefined("install", "default_scope") {
		cfg.Install.DefaultScope = overlay.Install.DefaultScope
	}
	if md.IsDefined("install", "verify_checksums") {
		cfg.Install.VerifyChecksums = overlay.Install.VerifyChecksums
	}
	if md.IsDefined("install", "auto_install_dependencies") {
		cfg.Install.AutoInstallDependencies = overlay.Install.AutoInstallDependencies
	}
	if md.IsDefined("install", "allow_stale_cache") {
		cfg.Install.AllowStaleCache = overlay.Install.AllowStaleCache
	}
	if md.IsDefined("install", "auto_cache") {
		cfg.Install.AutoCache = overlay.Install.AutoCache
	}
	if md.IsDefined("logging", "level") {
		cfg.Logging.Level = overlay.Logging.Level
	}
	if md.IsDefined("logging", "format") {
		cfg.Logging.Format = overlay.Logging.Format
	}
	if md.IsDefined("logging", "file") {
		cfg.Logging.File = overlay.Logging.File
	}

	return nil
}

// Save writes cfg to path atomically.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := fsx.WriteFileAtomic(path, data, 0644); err != nil {
		return errors.IOWrite(path, err)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Install.DefaultScope != ScopeGlobal && c.Install.DefaultScope != ScopeLocal {
		return errors.ConfigInvalidValue("install.default_scope",
			fmt.Sprintf("%q is not one of global, local", c.Install.DefaultScope))
	}
	seen := make(map[string]bool)
	for _, r := range c.Registries {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Name] {
			return errors.ConfigInvalidValue("registries.name",
				fmt.Sprintf("duplicate registry %q", r.Name))
		}
		seen[r.Name] = true
	}
	return nil
}

// FindRegistry returns the registry with the given name, or nil.
func (c *Config) FindRegistry(name string) *RegistryConfig {
	for i := range c.Registries {
		if c.Registries[i].Name == name {
			return &c.Registries[i]
		}
	}
	return nil
}

// UpsertRegistry adds a registry or replaces the entry with the same name.
func (c *Config) UpsertRegistry(reg RegistryConfig) {
	for i := range c.Registries {
		if c.Registries[i].Name == reg.Name {
			c.Registries[i] = reg
			return
		}
	}
	c.Registries = append(c.Registries, reg)
}

// RemoveRegistry deletes a registry by name. Returns false if absent.
func (c *Config) RemoveRegistry(name string) bool {
	for i := range c.Registries {
		if c.Registries[i].Name == name {
			c.Registries = append(c.Registries[:i], c.Registries[i+1:]...)
			return true
		}
	}
	return false
}

// EnabledRegistries returns enabled registries sorted by ascending
// priority. The sort is stable, so equal priorities keep config order.
func (c *Config) EnabledRegistries() []RegistryConfig {
	var out []RegistryConfig
	for _, r := range c.Registries {
		if r.Enabled {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
