// Package config loads taskdeck settings.
//
// Sources are applied in order, later ones winning: built-in defaults, the
// YAML config file, a .env file in the working directory, and the process
// environment. Command-line flags are applied by the caller on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Credential store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Environment variables.
const (
	EnvAPIURL             = "TASKDECK_API_URL"
	EnvWebURL             = "TASKDECK_WEB_URL"
	EnvConfigDir          = "TASKDECK_CONFIG_DIR"
	EnvCredentialsBackend = "TASKDECK_CREDENTIALS_BACKEND"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all settings.
type Config struct {
	APIURL      string            `yaml:"api_url"`
	WebURL      string            `yaml:"web_url"`
	Timeout     time.Duration     `yaml:"timeout"`
	ConfigDir   string            `yaml:"config_dir"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Log         LogConfig         `yaml:"log"`
}

// CredentialsConfig selects where the session credential is persisted.
type CredentialsConfig struct {
	Backend string `yaml:"backend"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:      "http://127.0.0.1:5000/api",
		WebURL:      "http://localhost:5173",
		Timeout:     15 * time.Second,
		ConfigDir:   DefaultDir(),
		Credentials: CredentialsConfig{Backend: BackendFile},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultDir returns ~/.config/taskdeck, or a relative fallback when the
// user config dir is unknown.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".taskdeck"
	}
	return filepath.Join(dir, "taskdeck")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load builds the configuration. path may be empty for the default
// location; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.APIURL, EnvAPIURL)
	setFromEnv(&c.WebURL, EnvWebURL)
	setFromEnv(&c.ConfigDir, EnvConfigDir)
	setFromEnv(&c.Credentials.Backend, EnvCredentialsBackend)
	setFromEnv(&c.Log.Level, EnvLogLevel)
	setFromEnv(&c.Log.Format, EnvLogFormat)
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%w: api_url is empty", ErrInvalid)
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("%w: api_url %q must start with http:// or https://", ErrInvalid, c.APIURL)
	}
	switch c.Credentials.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("%w: credentials.backend %q (want file or sqlite)", ErrInvalid, c.Credentials.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	return nil
}

// CredentialsPath returns where the file backend keeps the credential.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.ConfigDir, "credentials.json")
}

// DatabasePath returns where the sqlite backend keeps the credential.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.ConfigDir, "taskdeck.db")
}

// LogPath returns the TUI log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.ConfigDir, "taskdeck.log")
}
