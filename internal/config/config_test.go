package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 100, cfg.Search.CandidateLimit)
	assert.Equal(t, 0.8, cfg.Search.NewsWeight)
	assert.Equal(t, 1.0, cfg.Search.ArticleWeight)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 2, cfg.Embedding.MaxRetries)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.Limit)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
embedding:
  provider: static
search:
  rrf_constant: 30
  page_size: 25
rate_limit:
  limit: 50
  window: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
	assert.Equal(t, 25, cfg.Search.PageSize)
	assert.Equal(t, 50, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)

	// Untouched values keep their defaults.
	assert.Equal(t, 100, cfg.Search.CandidateLimit)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  rrf_constant: 30\nembedding:\n  provider: static\n"), 0o644))

	t.Setenv("NEWSEARCH_RRF_CONSTANT", "45")
	t.Setenv("NEWSEARCH_RATE_LIMIT_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.Search.RRFConstant)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid static", func(c *Config) { c.Embedding.Provider = "static" }, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"remote without endpoint", func(c *Config) { c.Embedding.Provider = "remote"; c.Embedding.Endpoint = "" }, "embedding.endpoint"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "llm" }, "embedding.provider"},
		{"zero dimensions", func(c *Config) { c.Embedding.Provider = "static"; c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"zero rrf constant", func(c *Config) { c.Embedding.Provider = "static"; c.Search.RRFConstant = 0 }, "rrf_constant"},
		{"negative weight", func(c *Config) { c.Embedding.Provider = "static"; c.Search.NewsWeight = -1 }, "weights"},
		{"zero quota", func(c *Config) { c.Embedding.Provider = "static"; c.RateLimit.Limit = 0 }, "rate_limit.limit"},
		{"quota ignored when disabled", func(c *Config) {
			c.Embedding.Provider = "static"
			c.RateLimit.Enabled = false
			c.RateLimit.Limit = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
