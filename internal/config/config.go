// Package config handles the XDG configuration directory, the optional
// config file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the optional settings filename.
	ConfigFile = "config.yaml"

	// CacheDir is the file-backed cache directory name.
	CacheDir = "cache"

	// CacheDBFile is the SQLite cache database filename.
	CacheDBFile = "cache.db"

	// OAuthClientFile is the OAuth client credentials filename (googletasks backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (googletasks backend).
	TokenFile = "token.json"
)

// Backend names.
const (
	BackendREST        = "rest"
	BackendGoogleTasks = "googletasks"
)

// Cache backend names.
const (
	CacheFileBackend   = "file"
	CacheSQLiteBackend = "sqlite"
)

// DefaultTimeout is the per-request timeout of the remote gateway.
const DefaultTimeout = 5 * time.Second

// Settings are the user-tunable values, read from config.yaml and then
// overridden by TASKSYNC_* environment variables.
type Settings struct {
	Backend   string        `yaml:"backend" env:"TASKSYNC_BACKEND"`
	ServerURL string        `yaml:"server_url" env:"TASKSYNC_SERVER_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TASKSYNC_TIMEOUT"`
	Token     string        `yaml:"token" env:"TASKSYNC_TOKEN"`
	Cache     string        `yaml:"cache" env:"TASKSYNC_CACHE"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings
}

// New creates a new Config with the default or specified config directory
// and default settings. It does not read any file; see Load.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir: dir,
		Settings: Settings{
			Backend: BackendREST,
			Timeout: DefaultTimeout,
			Cache:   CacheFileBackend,
		},
	}, nil
}

// Load creates a Config like New, then applies config.yaml (if present)
// and environment overrides, and validates the result.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.readFile(); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg.Settings); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile() error {
	data, err := os.ReadFile(c.FilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}
	if err := yaml.Unmarshal(data, &c.Settings); err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	return nil
}

// Validate checks that the settings can be used to build a backend.
func (s Settings) Validate() error {
	switch s.Backend {
	case BackendREST:
		if strings.TrimSpace(s.ServerURL) == "" {
			return fmt.Errorf("server_url is required for the %s backend", BackendREST)
		}
	case BackendGoogleTasks:
	default:
		return fmt.Errorf("unknown backend: %s", s.Backend)
	}
	switch s.Cache {
	case CacheFileBackend, CacheSQLiteBackend:
	default:
		return fmt.Errorf("unknown cache: %s", s.Cache)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %s", s.Timeout)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// CachePath returns the file cache directory.
func (c *Config) CachePath() string {
	return filepath.Join(c.Dir, CacheDir)
}

// CacheDBPath returns the SQLite cache database path.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.Dir, CacheDBFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
