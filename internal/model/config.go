package model

import "time"

// Config is the full application configuration.
// Hierarchy (highest to lowest priority): CLI flags, GARIMPO_* env vars,
// ~/.garimpo/config.yaml, defaults.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Catalog     CatalogConfig     `yaml:"catalog" mapstructure:"catalog"`
	Normalizer  NormalizerConfig  `yaml:"normalizer" mapstructure:"normalizer"`
	NER         NERConfig         `yaml:"ner" mapstructure:"ner"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls the provider HTTP client.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls caching of provider payloads.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// CatalogConfig controls the municipality catalog builder and loader.
type CatalogConfig struct {
	PrimarySource string `yaml:"primary_source" mapstructure:"primary_source"` // ibge or brasilapi
	Version       string `yaml:"version" mapstructure:"version"`
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	// MinRecords guards against publishing a truncated catalog. Brazil has
	// ~5,570 municipalities; anything far below that means a broken download.
	MinRecords int `yaml:"min_records" mapstructure:"min_records"`
}

// NormalizerConfig controls article text cleanup.
type NormalizerConfig struct {
	// BoilerplatePrefixes are line prefixes discarded before analysis
	// (bylines, photo credits, "leia também" teasers).
	BoilerplatePrefixes []string `yaml:"boilerplate_prefixes" mapstructure:"boilerplate_prefixes"`
}

// NERConfig controls the external entity-recognition engine.
type NERConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai or "" (patterns only)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Version   string `yaml:"version" mapstructure:"version"` // Pipeline version stamped on occurrences
}

// PipelineConfig controls batch extraction.
type PipelineConfig struct {
	BatchSize int  `yaml:"batch_size" mapstructure:"batch_size"`
	DryRun    bool `yaml:"dry_run" mapstructure:"dry_run"`
}

// ConcurrencyConfig controls worker fan-out.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig throttles provider requests per host.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "Garimpo/0.1 (+https://github.com/lucasvilar/garimpo)",
			MaxBodyBytes: 16_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Catalog: CatalogConfig{
			PrimarySource: "ibge",
			Version:       "v1",
			DataDir:       "data",
			MinRecords:    5000,
		},
		Normalizer: NormalizerConfig{
			BoilerplatePrefixes: []string{
				"leia também",
				"leia ainda",
				"crédito:",
				"reportagem:",
				"foto:",
			},
		},
		NER: NERConfig{
			Provider:  "",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 2000,
			Version:   "ner-v1",
		},
		Pipeline: PipelineConfig{
			BatchSize: 500,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			Burst:             5,
		},
	}
}
