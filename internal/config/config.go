// Package config loads CLI settings from defaults, a YAML file, .env files and
// the environment, in increasing order of precedence. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cicdai/cli/internal/httpclient"
	"github.com/cicdai/cli/internal/kvs"
)

// Environment variables read by Load.
const (
	EnvAPIURL          = "CICDAI_API_URL"
	EnvWithCredentials = "CICDAI_WITH_CREDENTIALS"
	EnvStore           = "CICDAI_STORE"
	EnvLogLevel        = "CICDAI_LOG_LEVEL"
	EnvLogFormat       = "CICDAI_LOG_FORMAT"
	EnvLocale          = "CICDAI_LOCALE"
)

// Config holds all configuration for the CLI
type Config struct {
	BaseURL         string          `yaml:"base_url"`
	WithCredentials bool            `yaml:"with_credentials"`
	Timeout         time.Duration   `yaml:"timeout"`
	LoginPath       string          `yaml:"login_path"`
	Locale          string          `yaml:"locale"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	MetricsTextfile string          `yaml:"metrics_textfile"`
	Store           kvs.Config      `yaml:"store"`
	Logging         LoggingConfig   `yaml:"logging"`
}

// RateLimitConfig bounds outgoing API requests. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:   httpclient.DefaultBaseURL,
		Timeout:   httpclient.DefaultTimeout,
		LoginPath: httpclient.DefaultLoginPath,
		Locale:    "en",
		Store: kvs.Config{
			Type: string(kvs.TypeFile),
			File: kvs.FileConfig{Scope: kvs.ScopeHome},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// DefaultPath is ~/.cicdai/config.yaml, or "" when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cicdai", "config.yaml")
}

// Load builds the configuration. An explicit path must exist; the default
// path is optional.
func Load(path string) (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := validateDocument(data); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvWithCredentials); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWithCredentials, v, err)
		}
		c.WithCredentials = b
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		c.Locale = v
	}
	return nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", c.BaseURL)
	}

	if _, err := kvs.ValidateType(c.Store.Type); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be 'console' or 'json'", c.Logging.Format)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate limit: rps and burst must not be negative")
	}
	return nil
}

// HTTPClient returns the transport settings for httpclient.New.
func (c *Config) HTTPClient() httpclient.Config {
	return httpclient.Config{
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout,
		WithCredentials: c.WithCredentials,
		RateLimit:       c.RateLimit.RPS,
		RateBurst:       c.RateLimit.Burst,
	}
}
