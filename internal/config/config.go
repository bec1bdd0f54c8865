package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App        AppConfig                 `toml:"app"`
	Log        LogConfig                 `toml:"log"`
	Aggregator AggregatorConfig          `toml:"aggregator"`
	RateLimit  RateLimitConfig           `toml:"rate_limit"`
	Storage    StorageConfig             `toml:"storage"`
	Thumbnails ThumbnailConfig           `toml:"thumbnails"`
	Cache      CacheConfig               `toml:"cache"`
	Server     ServerConfig              `toml:"server"`
	Providers  map[string]ProviderConfig `toml:"providers"`
}

type AppConfig struct {
	Name     string `toml:"name"`
	Interval string `toml:"interval"`
	RunOnce  bool   `toml:"run_once"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type AggregatorConfig struct {
	MaxRetries       int    `toml:"max_retries"`
	RetryDelay       string `toml:"retry_delay"`
	RequestTimeout   string `toml:"request_timeout"`
	MinExcerptLength int    `toml:"min_excerpt_length"`
	MaxResultItems   int    `toml:"max_result_items"`
}

type RateLimitConfig struct {
	MaxRequests int    `toml:"max_requests"`
	Per         string `toml:"per"`
}

type StorageConfig struct {
	Type string `toml:"type"`
	Path string `toml:"path"`
}

type ThumbnailConfig struct {
	Enabled     bool   `toml:"enabled"`
	Searcher    string `toml:"searcher"`
	AccessKey   string `toml:"access_key"`
	Concurrency int    `toml:"concurrency"`
}

type CacheConfig struct {
	Backend  string `toml:"backend"`
	TTL      string `toml:"ttl"`
	RedisURL string `toml:"redis_url"`
}

type ServerConfig struct {
	Port     string `toml:"port"`
	PageSize int    `toml:"page_size"`
	FeedSize int    `toml:"feed_size"`
}

type ProviderConfig struct {
	Type          string                 `toml:"type"`
	Enabled       bool                   `toml:"enabled"`
	Token         string                 `toml:"token"`
	BaseURL       string                 `toml:"base_url"`
	MaxItems      int                    `toml:"max_items"`
	ExcerptExempt *bool                  `toml:"excerpt_exempt"`
	Settings      map[string]interface{} `toml:"settings"`
}

// TypeName is the provider implementation to build. It defaults to the
// table key so that [providers.wikipedia] needs no type line.
func (p ProviderConfig) TypeName(key string) string {
	if p.Type != "" {
		return p.Type
	}
	return key
}

// BuiltinProviders are enabled when the config file has no [providers] table.
var BuiltinProviders = []string{"wikipedia", "blogs", "books", "textbooks", "github", "arxiv"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var config Config
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config, md)
	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

func applyDefaults(config *Config, md toml.MetaData) {
	if config.App.Name == "" {
		config.App.Name = "feedloom"
	}
	if config.App.Interval == "" {
		config.App.Interval = "15m"
	}

	if !md.IsDefined("aggregator", "max_retries") {
		config.Aggregator.MaxRetries = 3
	}
	if config.Aggregator.RetryDelay == "" {
		config.Aggregator.RetryDelay = "1s"
	}
	if config.Aggregator.RequestTimeout == "" {
		config.Aggregator.RequestTimeout = "10s"
	}
	if !md.IsDefined("aggregator", "min_excerpt_length") {
		config.Aggregator.MinExcerptLength = 50
	}
	if config.Aggregator.MaxResultItems == 0 {
		config.Aggregator.MaxResultItems = 50
	}

	if config.RateLimit.MaxRequests == 0 {
		config.RateLimit.MaxRequests = 2
	}
	if config.RateLimit.Per == "" {
		config.RateLimit.Per = "1s"
	}

	if config.Storage.Type == "" {
		config.Storage.Type = "sqlite"
	}
	if config.Storage.Path == "" {
		config.Storage.Path = "./feedloom.db"
	}

	if !md.IsDefined("thumbnails", "enabled") {
		config.Thumbnails.Enabled = true
	}
	if config.Thumbnails.Searcher == "" {
		config.Thumbnails.Searcher = "wikimedia"
	}
	if config.Thumbnails.Concurrency == 0 {
		config.Thumbnails.Concurrency = 4
	}

	if config.Cache.Backend == "" {
		config.Cache.Backend = "memory"
	}
	if config.Cache.TTL == "" {
		config.Cache.TTL = "24h"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.PageSize == 0 {
		config.Server.PageSize = 10
	}
	if config.Server.FeedSize == 0 {
		config.Server.FeedSize = 100
	}

	if len(config.Providers) == 0 {
		config.Providers = make(map[string]ProviderConfig, len(BuiltinProviders))
		for _, name := range BuiltinProviders {
			config.Providers[name] = ProviderConfig{Enabled: true}
		}
	}
}

func applyEnv(config *Config) {
	if token := os.Getenv("FEEDLOOM_GITHUB_TOKEN"); token != "" {
		if p, ok := config.Providers["github"]; ok && p.Token == "" {
			p.Token = token
			config.Providers["github"] = p
		}
	}
	if key := os.Getenv("FEEDLOOM_UNSPLASH_KEY"); key != "" && config.Thumbnails.AccessKey == "" {
		config.Thumbnails.AccessKey = key
	}
	if url := os.Getenv("FEEDLOOM_REDIS_URL"); url != "" && config.Cache.RedisURL == "" {
		config.Cache.RedisURL = url
	}
}

func validateConfig(config *Config) error {
	for key, raw := range map[string]string{
		"app.interval":               config.App.Interval,
		"aggregator.retry_delay":     config.Aggregator.RetryDelay,
		"aggregator.request_timeout": config.Aggregator.RequestTimeout,
		"rate_limit.per":             config.RateLimit.Per,
		"cache.ttl":                  config.Cache.TTL,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if config.Aggregator.MaxRetries < 0 {
		return fmt.Errorf("aggregator.max_retries cannot be negative")
	}
	if config.Aggregator.MinExcerptLength < 0 {
		return fmt.Errorf("aggregator.min_excerpt_length cannot be negative")
	}
	if config.Aggregator.MaxResultItems < 0 {
		return fmt.Errorf("aggregator.max_result_items must be positive")
	}
	if config.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive")
	}
	if config.Thumbnails.Concurrency < 0 {
		return fmt.Errorf("thumbnails.concurrency must be positive")
	}

	switch config.Thumbnails.Searcher {
	case "wikimedia", "opengraph", "none":
	case "unsplash":
		if config.Thumbnails.Enabled && config.Thumbnails.AccessKey == "" {
			return fmt.Errorf("thumbnails.access_key is required for the unsplash searcher")
		}
	default:
		return fmt.Errorf("unknown thumbnails.searcher: %s", config.Thumbnails.Searcher)
	}

	switch config.Cache.Backend {
	case "memory", "none":
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend: %s", config.Cache.Backend)
	}

	enabledProviders := 0
	for _, p := range config.Providers {
		if p.Enabled {
			enabledProviders++
		}
	}
	if enabledProviders == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}

	return nil
}

func (a AggregatorConfig) RequestTimeoutDuration() time.Duration {
	return mustDuration(a.RequestTimeout)
}

func (a AggregatorConfig) RetryDelayDuration() time.Duration {
	return mustDuration(a.RetryDelay)
}

func (r RateLimitConfig) PerDuration() time.Duration {
	return mustDuration(r.Per)
}

func (c CacheConfig) TTLDuration() time.Duration {
	return mustDuration(c.TTL)
}

func (a AppConfig) IntervalDuration() time.Duration {
	return mustDuration(a.Interval)
}

// mustDuration is only called on values already checked by validateConfig.
func mustDuration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}

func GetString(settings map[string]interface{}, key string, defaultValue string) string {
	if val, ok := settings[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

func GetInt(settings map[string]interface{}, key string, defaultValue int) int {
	if val, ok := settings[key]; ok {
		if i, ok := val.(int64); ok {
			return int(i)
		}
		if i, ok := val.(int); ok {
			return i
		}
	}
	return defaultValue
}

func GetBool(settings map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := settings[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}

func GetStringSlice(settings map[string]interface{}, key string) []string {
	if val, ok := settings[key]; ok {
		switch arr := val.(type) {
		case []interface{}:
			result := make([]string, 0, len(arr))
			for _, item := range arr {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			return result
		case []string:
			return arr
		}
	}
	return []string{}
}

