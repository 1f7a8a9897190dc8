// Package config loads and validates newsearch configuration. Values are
// applied in order of increasing precedence: hardcoded defaults, the YAML
// config file, then NEWSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete newsearch configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// RequestTimeout bounds a single search request end to end, including
	// embedding and both sub-searches.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// StoreConfig configures the content store.
type StoreConfig struct {
	// Path is the SQLite database path. ":memory:" is accepted for tests.
	Path string `yaml:"path" json:"path"`

	// CacheMB is the SQLite page cache size in MB.
	CacheMB int `yaml:"cache_mb" json:"cache_mb"`
}

// EmbeddingConfig configures the embedding endpoint client.
type EmbeddingConfig struct {
	// Provider selects the embedder: "remote" (HTTP endpoint) or "static"
	// (deterministic local vectors, for development and tests).
	Provider string `yaml:"provider" json:"provider"`

	// Endpoint is the embedding service URL. Required for "remote".
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// APIKey authenticates requests to the endpoint.
	APIKey string `yaml:"api_key" json:"api_key"`

	// SigningSecret is the shared secret used to sign request bodies.
	SigningSecret string `yaml:"signing_secret" json:"signing_secret"`

	// Dimensions is the system-wide embedding dimensionality.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// Timeout bounds a single embedding HTTP call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// SearchConfig configures ranking parameters.
//
// The RRF constant and field weights are tunable per deployment; the
// defaults match the values the ranking was calibrated with.
type SearchConfig struct {
	// RRFConstant is the RRF fusion smoothing parameter (k).
	// Default: 60. Higher values reduce the impact of rank differences.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// CandidateLimit caps how many candidates each engine returns before
	// fusion. Pagination is applied after fusion over the full fused list.
	CandidateLimit int `yaml:"candidate_limit" json:"candidate_limit"`

	// PageSize is the default number of results per page.
	PageSize int `yaml:"page_size" json:"page_size"`

	// NewsWeight scales lexical match scores on summary text.
	NewsWeight float64 `yaml:"news_weight" json:"news_weight"`

	// ArticleWeight scales lexical match scores on full article text.
	ArticleWeight float64 `yaml:"article_weight" json:"article_weight"`

	// RecencyBoostDays is the window within which lexical scores get a
	// freshness boost. 0 disables the boost.
	RecencyBoostDays int `yaml:"recency_boost_days" json:"recency_boost_days"`
}

// RateLimitConfig configures per-client request quotas.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Limit is the maximum requests per client per window.
	Limit int `yaml:"limit" json:"limit"`

	// Window is the quota window.
	Window time.Duration `yaml:"window" json:"window"`

	// MaxClients bounds how many client counters are kept in memory.
	MaxClients int `yaml:"max_clients" json:"max_clients"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config with all defaults applied.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Path:    "newsearch.db",
			CacheMB: 64,
		},
		Embedding: EmbeddingConfig{
			// Static is the zero-config default; deployments select
			// "remote" and set the endpoint explicitly.
			Provider:   "static",
			Dimensions: 768,
			Timeout:    5 * time.Second,
			MaxRetries: 2,
		},
		Search: SearchConfig{
			RRFConstant:      60,
			CandidateLimit:   100,
			PageSize:         10,
			NewsWeight:       0.8,
			ArticleWeight:    1.0,
			RecencyBoostDays: 7,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Limit:      100,
			Window:     time.Hour,
			MaxClients: 10000,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load loads configuration from the given file path. An empty path or a
// missing file yields the defaults. Environment variables are applied last.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.RequestTimeout != 0 {
		c.Server.RequestTimeout = other.Server.RequestTimeout
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.CacheMB != 0 {
		c.Store.CacheMB = other.Store.CacheMB
	}

	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.Endpoint != "" {
		c.Embedding.Endpoint = other.Embedding.Endpoint
	}
	if other.Embedding.APIKey != "" {
		c.Embedding.APIKey = other.Embedding.APIKey
	}
	if other.Embedding.SigningSecret != "" {
		c.Embedding.SigningSecret = other.Embedding.SigningSecret
	}
	if other.Embedding.Dimensions != 0 {
		c.Embedding.Dimensions = other.Embedding.Dimensions
	}
	if other.Embedding.Timeout != 0 {
		c.Embedding.Timeout = other.Embedding.Timeout
	}
	if other.Embedding.MaxRetries != 0 {
		c.Embedding.MaxRetries = other.Embedding.MaxRetries
	}

	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.CandidateLimit != 0 {
		c.Search.CandidateLimit = other.Search.CandidateLimit
	}
	if other.Search.PageSize != 0 {
		c.Search.PageSize = other.Search.PageSize
	}
	if other.Search.NewsWeight != 0 {
		c.Search.NewsWeight = other.Search.NewsWeight
	}
	if other.Search.ArticleWeight != 0 {
		c.Search.ArticleWeight = other.Search.ArticleWeight
	}
	if other.Search.RecencyBoostDays != 0 {
		c.Search.RecencyBoostDays = other.Search.RecencyBoostDays
	}

	// Enabled is boolean - only merge when any rate-limit field was set.
	if other.RateLimit.Limit != 0 || other.RateLimit.Window != 0 || other.RateLimit.MaxClients != 0 {
		c.RateLimit.Enabled = other.RateLimit.Enabled
	}
	if other.RateLimit.Limit != 0 {
		c.RateLimit.Limit = other.RateLimit.Limit
	}
	if other.RateLimit.Window != 0 {
		c.RateLimit.Window = other.RateLimit.Window
	}
	if other.RateLimit.MaxClients != 0 {
		c.RateLimit.MaxClients = other.RateLimit.MaxClients
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.FilePath != "" {
		c.Log.FilePath = other.Log.FilePath
	}
	if other.Log.MaxSizeMB != 0 {
		c.Log.MaxSizeMB = other.Log.MaxSizeMB
	}
	if other.Log.MaxFiles != 0 {
		c.Log.MaxFiles = other.Log.MaxFiles
	}
}

// applyEnvOverrides applies NEWSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NEWSEARCH_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("NEWSEARCH_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("NEWSEARCH_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("NEWSEARCH_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("NEWSEARCH_EMBEDDING_ENDPOINT"); v != "" {
		c.Embedding.Endpoint = v
	}
	if v := os.Getenv("NEWSEARCH_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("NEWSEARCH_EMBEDDING_SIGNING_SECRET"); v != "" {
		c.Embedding.SigningSecret = v
	}
	if v := os.Getenv("NEWSEARCH_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("NEWSEARCH_CANDIDATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.CandidateLimit = n
		}
	}
	if v := os.Getenv("NEWSEARCH_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("NEWSEARCH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateLimit.Limit = n
		}
	}
	if v := os.Getenv("NEWSEARCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("NEWSEARCH_LOG_FILE"); v != "" {
		c.Log.FilePath = v
	}
}

// Validate checks the final configuration for values that would break the
// engine at runtime rather than at load time.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %s", c.Server.RequestTimeout)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}

	switch c.Embedding.Provider {
	case "remote":
		if c.Embedding.Endpoint == "" {
			return fmt.Errorf("embedding.endpoint is required for the remote provider")
		}
	case "static":
		// No endpoint needed.
	default:
		return fmt.Errorf("embedding.provider must be \"remote\" or \"static\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("embedding.max_retries must not be negative, got %d", c.Embedding.MaxRetries)
	}

	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.CandidateLimit <= 0 {
		return fmt.Errorf("search.candidate_limit must be positive, got %d", c.Search.CandidateLimit)
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be positive, got %d", c.Search.PageSize)
	}
	if c.Search.NewsWeight < 0 || c.Search.ArticleWeight < 0 {
		return fmt.Errorf("search weights must not be negative")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return fmt.Errorf("rate_limit.limit must be positive, got %d", c.RateLimit.Limit)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
		}
		if c.RateLimit.MaxClients <= 0 {
			return fmt.Errorf("rate_limit.max_clients must be positive, got %d", c.RateLimit.MaxClients)
		}
	}

	return nil
}
