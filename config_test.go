package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, defaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Config)
	}{
		{"fetch.timeout", func(c *Config) { c.Fetch.Timeout = 0 }},
		{"fetch.maxResponseBytes", func(c *Config) { c.Fetch.MaxResponseBytes = -1 }},
		{"images.concurrency", func(c *Config) { c.Images.Concurrency = 0 }},
		{"images.perHostRPS", func(c *Config) { c.Images.PerHostRPS = -1 }},
		{"images.quality", func(c *Config) { c.Images.Quality = 101 }},
		{"images.maxWidth", func(c *Config) { c.Images.MaxWidth = -5 }},
		{"extract.engine", func(c *Config) { c.Extract.Engine = "magic" }},
		{"extract.charThreshold", func(c *Config) { c.Extract.CharThreshold = -1 }},
		{"store.path", func(c *Config) { c.Store.Path = "" }},
		{"store.redisAddr", func(c *Config) { c.Store.Driver = driverRedis }},
		{"store.driver", func(c *Config) { c.Store.Driver = "bolt" }},
		{"session.ttl", func(c *Config) { c.Session.TTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LECTERN_TIMEOUT":           "5s",
		"LECTERN_USER_AGENT":        "test-agent",
		"LECTERN_ALLOW_PRIVATE":     "true",
		"LECTERN_IMAGE_CONCURRENCY": "3",
		"LECTERN_ENGINE":            " Trafilatura ",
		"LECTERN_STORE_DRIVER":      "memory",
		"LECTERN_SESSION_TTL":       "10m",
		"LECTERN_ADDR":              "127.0.0.1:0",
		"LECTERN_ALLOWED_ORIGINS":   "chrome-extension://abc, ,moz-extension://def",
	}
	cfg := defaultConfig()
	applyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "test-agent", cfg.Fetch.UserAgent)
	assert.True(t, cfg.Fetch.AllowPrivate)
	assert.Equal(t, 3, cfg.Images.Concurrency)
	assert.Equal(t, engineTrafilatura, cfg.Extract.Engine)
	assert.Equal(t, driverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "127.0.0.1:0", cfg.Server.Addr)
	assert.Equal(t, []string{"chrome-extension://abc", "moz-extension://def"}, cfg.Server.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_IgnoresMalformed(t *testing.T) {
	env := map[string]string{
		"LECTERN_TIMEOUT":           "soon",
		"LECTERN_IMAGE_CONCURRENCY": "many",
		"LECTERN_ALLOW_PRIVATE":     "perhaps",
	}
	cfg := defaultConfig()
	applyEnv(&cfg, func(k string) string { return env[k] })

	def := defaultConfig()
	assert.Equal(t, def.Fetch.Timeout, cfg.Fetch.Timeout)
	assert.Equal(t, def.Images.Concurrency, cfg.Images.Concurrency)
	assert.False(t, cfg.Fetch.AllowPrivate)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
fetch:
  timeout: 12s
images:
  grayscale: true
  maxWidth: 800
store:
  driver: memory
server:
  allowedOrigins:
    - chrome-extension://abc
`), 0o644))

	cfg := defaultConfig()
	require.NoError(t, loadConfigFile(yamlPath, &cfg))
	assert.Equal(t, 12*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.Images.Grayscale)
	assert.Equal(t, 800, cfg.Images.MaxWidth)
	assert.Equal(t, 80, cfg.Images.Quality, "unset keys keep their defaults")
	assert.Equal(t, driverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"chrome-extension://abc"}, cfg.Server.AllowedOrigins)

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"extract":{"engine":"trafilatura"},"images":{"quality":60}}`), 0o644))
	cfg = defaultConfig()
	require.NoError(t, loadConfigFile(jsonPath, &cfg))
	assert.Equal(t, engineTrafilatura, cfg.Extract.Engine)
	assert.Equal(t, 60, cfg.Images.Quality)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("fetch: [unclosed"), 0o644))
	assert.Error(t, loadConfigFile(badPath, &cfg))

	assert.Error(t, loadConfigFile(filepath.Join(dir, "missing.yaml"), &cfg))
}
