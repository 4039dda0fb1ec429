package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the docsearch configuration shared by the API, worker and CLI.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Engine    EngineConfig    `yaml:"engine"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Queue     QueueConfig     `yaml:"queue"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds search engine connection settings.
type EngineConfig struct {
	Addresses         []string `yaml:"addresses"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	APIKey            string   `yaml:"api_key"`
	ReadinessTimeout  int      `yaml:"readiness_timeout_sec"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
	VectorDimensions  int      `yaml:"vector_dimensions"`
	Bootstrap         *bool    `yaml:"bootstrap"` // create missing collections on first use (default: true)
}

// RedisConfig holds the Redis connection used by the cache and the job queue.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds document cache settings.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TTLSec    int    `yaml:"ttl_sec"`
	KeyPrefix string `yaml:"key_prefix"`
}

// QueueConfig holds embedding job queue settings.
type QueueConfig struct {
	Key           string `yaml:"key"`
	StatusPrefix  string `yaml:"status_prefix"`
	StatusTTLSec  int    `yaml:"status_ttl_sec"`
	PopTimeoutSec int    `yaml:"pop_timeout_sec"`
	IdleSleepMs   int    `yaml:"idle_sleep_ms"`
	Workers       int    `yaml:"workers"`
	MetricsPort   int    `yaml:"metrics_port"` // worker /metrics listener, 0 disables
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	BatchSize   int    `yaml:"batch_size"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // embedding cache in Redis, 0 keeps the default
}

// SearchConfig holds search request defaults.
type SearchConfig struct {
	DefaultLimit      int    `yaml:"default_limit"`
	MaxLimit          int    `yaml:"max_limit"`
	DefaultFacetLimit int    `yaml:"default_facet_limit"`
	HighlightPreTag   string `yaml:"highlight_pre_tag"`
	HighlightPostTag  string `yaml:"highlight_post_tag"`
}

// LifecycleConfig holds index migration settings.
type LifecycleConfig struct {
	ReindexTimeoutSec int `yaml:"reindex_timeout_sec"`
}

// ReindexTimeout returns the reindex ceiling as a duration.
func (c LifecycleConfig) ReindexTimeout() time.Duration {
	return time.Duration(c.ReindexTimeoutSec) * time.Second
}

// BootstrapEnabled reports whether collections are created on first engine use.
func (c EngineConfig) BootstrapEnabled() bool {
	return c.Bootstrap == nil || *c.Bootstrap
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.ReadinessTimeout <= 0 {
		c.Engine.ReadinessTimeout = 30
	}
	if c.Engine.RequestTimeoutSec <= 0 {
		c.Engine.RequestTimeoutSec = 10
	}
	if c.Engine.VectorDimensions <= 0 {
		c.Engine.VectorDimensions = 384
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "docsearch:"
	}
	if c.Queue.Key == "" {
		c.Queue.Key = "embedding:queue"
	}
	if c.Queue.StatusPrefix == "" {
		c.Queue.StatusPrefix = "embedding:job:"
	}
	if c.Queue.StatusTTLSec <= 0 {
		c.Queue.StatusTTLSec = 24 * 60 * 60
	}
	if c.Queue.PopTimeoutSec <= 0 {
		c.Queue.PopTimeoutSec = 5
	}
	if c.Queue.IdleSleepMs <= 0 {
		c.Queue.IdleSleepMs = 1000
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 1
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = c.Engine.VectorDimensions
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 7 * 24 * 60 * 60
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.DefaultFacetLimit <= 0 {
		c.Search.DefaultFacetLimit = 10
	}
	if c.Search.HighlightPreTag == "" {
		c.Search.HighlightPreTag = "<em>"
	}
	if c.Search.HighlightPostTag == "" {
		c.Search.HighlightPostTag = "</em>"
	}
	if c.Lifecycle.ReindexTimeoutSec <= 0 {
		c.Lifecycle.ReindexTimeoutSec = 60 * 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Engine.Addresses) == 0 {
		return fmt.Errorf("engine.addresses is required")
	}
	for i, addr := range c.Engine.Addresses {
		if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
			return fmt.Errorf("engine.addresses[%d] must be an http(s) URL, got %q", i, addr)
		}
	}
	if c.Engine.APIKey != "" && c.Engine.Username != "" {
		return fmt.Errorf("engine.api_key and engine.username are mutually exclusive")
	}
	if c.Cache.Enabled && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required when cache.enabled is true")
	}
	if c.Embedding.Dimensions != c.Engine.VectorDimensions {
		return fmt.Errorf(
			"embedding.dimensions (%d) must match engine.vector_dimensions (%d)",
			c.Embedding.Dimensions, c.Engine.VectorDimensions,
		)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf(
			"search.default_limit (%d) must not exceed search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
