package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicdai/cli/internal/kvs"
)

// isolate points HOME and the working directory at empty temp dirs and clears
// every CICDAI_ variable so Load only sees what the test sets up. Values set
// by .env files are restored by t.Setenv's cleanup.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{EnvAPIURL, EnvWithCredentials, EnvStore, EnvLogLevel, EnvLogFormat, EnvLocale} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.False(t, cfg.WithCredentials)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, string(kvs.TypeFile), cfg.Store.Type)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)

	writeFile(t, filepath.Join(home, ".cicdai", "config.yaml"), `
base_url: https://file.example.com
with_credentials: true
timeout: 5s
locale: ko
rate_limit:
  rps: 2.5
  burst: 3
store:
  type: leveldb
  leveldb:
    path: /tmp/creds.ldb
logging:
  level: debug
  format: json
`)
	writeFile(t, ".env", "CICDAI_API_URL=https://dotenv.example.com\nCICDAI_LOG_FORMAT=console\n")

	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://dotenv.example.com", cfg.BaseURL, ".env overrides the file")
	assert.Equal(t, "console", cfg.Logging.Format, ".env overrides the file")
	assert.Equal(t, "error", cfg.Logging.Level, "environment overrides the file")
	assert.True(t, cfg.WithCredentials)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "ko", cfg.Locale)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, "leveldb", cfg.Store.Type)
	assert.Equal(t, "/tmp/creds.ldb", cfg.Store.LevelDB.Path)
	assert.Equal(t, "/login", cfg.LoginPath, "unset keys keep their defaults")

	hc := cfg.HTTPClient()
	assert.Equal(t, "https://dotenv.example.com", hc.BaseURL)
	assert.True(t, hc.WithCredentials)
	assert.Equal(t, 2.5, hc.RateLimit)
}

func TestLoadEnvironmentOverridesDotenv(t *testing.T) {
	isolate(t)
	writeFile(t, ".env", "CICDAI_STORE=redis\n")
	t.Setenv(EnvStore, "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadExplicitPath(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "cicdai.yaml")
	writeFile(t, path, "store:\n  type: memory\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoadSchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Unknown key", content: "api_url: http://x\n"},
		{name: "Bad store type", content: "store:\n  type: etcd\n"},
		{name: "Bad log format", content: "logging:\n  format: xml\n"},
		{name: "Numeric timeout", content: "timeout: 30\n"},
		{name: "Negative burst", content: "rate_limit:\n  burst: -1\n"},
		{name: "Relative login path", content: "login_path: login\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config file")
		})
	}
}

func TestLoadInvalidBoolEnv(t *testing.T) {
	isolate(t)
	t.Setenv(EnvWithCredentials, "sometimes")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvWithCredentials)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedErr string
	}{
		{name: "Defaults", mutate: func(c *Config) {}, expectedErr: ""},
		{name: "Empty store means file", mutate: func(c *Config) { c.Store.Type = "" }, expectedErr: ""},
		{name: "Relative base URL", mutate: func(c *Config) { c.BaseURL = "localhost:8000" }, expectedErr: "invalid base URL"},
		{name: "Unresolved placeholder", mutate: func(c *Config) { c.BaseURL = "${API_BASE_URL}" }, expectedErr: "invalid base URL"},
		{name: "Invalid store", mutate: func(c *Config) { c.Store.Type = "etcd" }, expectedErr: "invalid store"},
		{name: "Invalid level", mutate: func(c *Config) { c.Logging.Level = "loud" }, expectedErr: "invalid log level"},
		{name: "Invalid format", mutate: func(c *Config) { c.Logging.Format = "xml" }, expectedErr: "invalid log format"},
		{name: "Zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, expectedErr: "invalid timeout"},
		{name: "Negative rate", mutate: func(c *Config) { c.RateLimit.RPS = -1 }, expectedErr: "invalid rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}
