package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"
)

// Supported embedding provider types.
const (
	ProviderTypeOpenAI = "openai" // any OpenAI-compatible embeddings API (OpenAI, Jina)
	ProviderTypeOllama = "ollama" // local OpenAI-compatible host via langchaingo
	ProviderTypeLocal  = "local"  // hashing embedder, no network
)

// Config holds the ideasearch configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LocalEmbedder LocalEmbedderConfig `yaml:"local_embedder"`
	Enhancer      EnhancerConfig      `yaml:"enhancer"`
	Search        SearchConfig        `yaml:"search"`
	Indexing      IndexingConfig      `yaml:"indexing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`

	// APIKeys enables bearer authentication on /v1 routes when non-empty.
	APIKeys []string `yaml:"api_keys"`
}

// DatabaseConfig holds backing store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, postgres (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`
	MaxConns         int      `yaml:"max_conns"`
	MinConns         int      `yaml:"min_conns"`
	KeyPrefix        string   `yaml:"key_prefix"`
	IndexName        string   `yaml:"index_name"`
	VectorProvider   string   `yaml:"vector_provider"` // provider whose vectors the store holds
	VectorDimensions int      `yaml:"vector_dimensions"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IsPostgres reports whether the relational store is selected.
func (d DatabaseConfig) IsPostgres() bool { return d.Driver == DriverPostgres }

// EmbeddingConfig holds the provider chain.
type EmbeddingConfig struct {
	// Chain is the ordered fallback list of provider names.
	Chain          []string                  `yaml:"chain"`
	Providers      map[string]ProviderConfig `yaml:"providers"`
	Retry          RetryConfig               `yaml:"retry"`
	TolerateOutage bool                      `yaml:"tolerate_outage"` // degrade to lexical-only
	Cache          EmbeddingCacheConfig      `yaml:"cache"`
}

// ProviderConfig holds one embedding backend.
type ProviderConfig struct {
	Type       string `yaml:"type"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// RetryConfig holds the per-provider retry policy.
type RetryConfig struct {
	Attempts     int `yaml:"attempts"`
	BaseDelaySec int `yaml:"base_delay_sec"`
}

// EmbeddingCacheConfig holds the KV cache in front of remote providers.
type EmbeddingCacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// LocalEmbedderConfig holds the hashing embedder settings.
type LocalEmbedderConfig struct {
	Dimensions      int `yaml:"dimensions"`
	CacheMaxEntries int `yaml:"cache_max_entries"`
	CacheEvictBatch int `yaml:"cache_evict_batch"`
	CacheKeyChars   int `yaml:"cache_key_chars"`
}

// EnhancerConfig holds query enhancement settings.
type EnhancerConfig struct {
	AIEnabled  bool   `yaml:"ai_enabled"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MemoSize   int    `yaml:"memo_size"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	CandidateLimit int     `yaml:"candidate_limit"`
	RRFK           int     `yaml:"rrf_k"`
	LexicalWeight  float64 `yaml:"lexical_weight"`
	VectorWeight   float64 `yaml:"vector_weight"`
	RRFWeight      float64 `yaml:"rrf_weight"`
	BoostPerFacet  int     `yaml:"boost_per_facet"`
}

// IndexingConfig holds batch indexing settings.
type IndexingConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, docker, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, unmarshals, applies defaults and validates.
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
		// embedding retries can hold a request for 2+4+8 seconds per provider
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "ideasearch:idea:"
	}
	if c.Database.IndexName == "" {
		c.Database.IndexName = "ideasearch:ideas:idx"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MinConns <= 0 {
		c.Database.MinConns = 2
	}

	if len(c.Embedding.Chain) == 0 {
		c.Embedding.Chain = []string{ProviderTypeLocal}
	}
	if c.Embedding.Retry.Attempts <= 0 {
		c.Embedding.Retry.Attempts = 3
	}
	if c.Embedding.Retry.BaseDelaySec <= 0 {
		c.Embedding.Retry.BaseDelaySec = 1
	}
	if c.Embedding.Cache.TTLSec <= 0 {
		c.Embedding.Cache.TTLSec = 7 * 24 * 3600
	}
	if c.Embedding.Providers == nil {
		c.Embedding.Providers = map[string]ProviderConfig{}
	}
	if _, ok := c.Embedding.Providers[ProviderTypeLocal]; !ok {
		c.Embedding.Providers[ProviderTypeLocal] = ProviderConfig{Type: ProviderTypeLocal}
	}

	if c.LocalEmbedder.Dimensions <= 0 {
		c.LocalEmbedder.Dimensions = 384
	}
	if c.LocalEmbedder.CacheMaxEntries <= 0 {
		c.LocalEmbedder.CacheMaxEntries = 10000
	}
	if c.LocalEmbedder.CacheEvictBatch <= 0 {
		c.LocalEmbedder.CacheEvictBatch = 2000
	}
	if c.LocalEmbedder.CacheKeyChars <= 0 {
		c.LocalEmbedder.CacheKeyChars = 300
	}
	if c.Database.VectorProvider == "" {
		c.Database.VectorProvider = c.Embedding.Chain[0]
	}
	if c.Database.VectorDimensions <= 0 {
		c.Database.VectorDimensions = c.providerDimensions(c.Database.VectorProvider)
	}

	if c.Enhancer.TimeoutSec <= 0 {
		c.Enhancer.TimeoutSec = 10
	}
	if c.Enhancer.MemoSize <= 0 {
		c.Enhancer.MemoSize = 512
	}

	if c.Search.CandidateLimit <= 0 {
		c.Search.CandidateLimit = 150
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
	if c.Search.LexicalWeight == 0 && c.Search.VectorWeight == 0 && c.Search.RRFWeight == 0 {
		c.Search.LexicalWeight = 0.30
		c.Search.VectorWeight = 0.50
		c.Search.RRFWeight = 0.20
	}
	if c.Search.BoostPerFacet <= 0 {
		c.Search.BoostPerFacet = 10
	}

	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 50
	}
}

// providerDimensions is the vector length a configured provider produces.
func (c *Config) providerDimensions(name string) int {
	p := c.Embedding.Providers[name]
	if p.Type == ProviderTypeLocal || p.Dimensions <= 0 {
		return c.LocalEmbedder.Dimensions
	}
	return p.Dimensions
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, postgres, got %q", c.Database.Driver)
	}

	seen := make(map[string]bool, len(c.Embedding.Chain))
	for _, name := range c.Embedding.Chain {
		if seen[name] {
			return fmt.Errorf("embedding.chain lists %q twice", name)
		}
		seen[name] = true
		if _, ok := c.Embedding.Providers[name]; !ok {
			return fmt.Errorf("embedding.chain references unknown provider %q", name)
		}
	}

	if _, ok := c.Embedding.Providers[c.Database.VectorProvider]; !ok {
		return fmt.Errorf("database.vector_provider references unknown provider %q", c.Database.VectorProvider)
	}
	if c.Database.VectorDimensions != c.providerDimensions(c.Database.VectorProvider) {
		return fmt.Errorf("database.vector_dimensions %d does not match provider %q (%d)",
			c.Database.VectorDimensions, c.Database.VectorProvider, c.providerDimensions(c.Database.VectorProvider))
	}

	for name, p := range c.Embedding.Providers {
		switch p.Type {
		case ProviderTypeLocal:
		case ProviderTypeOpenAI, ProviderTypeOllama:
			if p.Model == "" {
				return fmt.Errorf("embedding.providers.%s.model is required", name)
			}
			if p.Dimensions <= 0 {
				return fmt.Errorf("embedding.providers.%s.dimensions must be positive", name)
			}
			if p.Type == ProviderTypeOllama && p.BaseURL == "" {
				return fmt.Errorf("embedding.providers.%s.base_url is required", name)
			}
		default:
			return fmt.Errorf("embedding.providers.%s.type must be one of openai, ollama, local, got %q", name, p.Type)
		}
	}

	sum := c.Search.LexicalWeight + c.Search.VectorWeight + c.Search.RRFWeight
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 || c.Search.RRFWeight < 0 || sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("search weights must be non-negative and sum to 1, got %.3f", sum)
	}

	if c.LocalEmbedder.CacheEvictBatch > c.LocalEmbedder.CacheMaxEntries {
		return fmt.Errorf("local_embedder.cache_evict_batch must not exceed cache_max_entries")
	}

	if c.Enhancer.AIEnabled && (c.Enhancer.BaseURL == "" || c.Enhancer.Model == "") {
		return fmt.Errorf("enhancer.base_url and enhancer.model are required when ai_enabled")
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
