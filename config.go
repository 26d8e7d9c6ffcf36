package collectorpro

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Cache backends selectable from Config.
const (
	CacheBackendMemory   = "memory"
	CacheBackendBigCache = "bigcache"
	CacheBackendRedis    = "redis"
)

// Config is the file form of the client settings.
type Config struct {
	BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries     int           `yaml:"max_retries" validate:"min=0,max=100"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" validate:"gt=0"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay" validate:"gtefield=RetryBaseDelay"`
	Jitter         float64       `yaml:"jitter" validate:"min=0,max=1"`
	Coalesce       bool          `yaml:"coalesce"`
	RateLimit      float64       `yaml:"rate_limit" validate:"min=0"`
	RateBurst      int           `yaml:"rate_burst" validate:"min=0"`
	Cache          CacheConfig   `yaml:"cache"`
}

// CacheConfig selects and sizes the response cache.
type CacheConfig struct {
	Enabled         bool           `yaml:"enabled"`
	Backend         string         `yaml:"backend" validate:"omitempty,oneof=memory bigcache redis"`
	TTL             time.Duration  `yaml:"ttl" validate:"min=0"`
	JanitorInterval time.Duration  `yaml:"janitor_interval" validate:"min=0"`
	BigCache        BigCacheConfig `yaml:"bigcache"`
	Redis           *RedisConfig   `yaml:"redis"`
}

var validate = validator.New()

// DefaultConfig returns the settings New uses when given no options.
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		MaxRetryDelay:  10 * time.Second,
		Cache: CacheConfig{
			Enabled: true,
			Backend: CacheBackendMemory,
			TTL:     5 * time.Minute,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and backend requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive when the cache is enabled", ErrInvalidConfig)
	}
	if c.Cache.Enabled && c.Cache.Backend == CacheBackendRedis && c.Cache.Redis == nil {
		return fmt.Errorf("%w: redis backend selected without a redis section", ErrInvalidConfig)
	}
	return nil
}

// NewFromConfig builds a Client from cfg, including its cache backend. opts
// are applied after the config and win on conflict.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithRetryBaseDelay(cfg.RetryBaseDelay),
		WithMaxRetryDelay(cfg.MaxRetryDelay),
		WithJitter(cfg.Jitter),
	}
	if cfg.Coalesce {
		base = append(base, WithCoalescing())
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		base = append(base, WithRateLimit(cfg.RateLimit, burst))
	}
	if cfg.Cache.Enabled {
		base = append(base, WithCache(cfg.Cache.TTL))
	} else {
		base = append(base, WithoutCache())
	}

	client := New(append(base, opts...)...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled || !client.defaultCache {
		return client, nil
	}

	switch cfg.Cache.Backend {
	case CacheBackendBigCache:
		bc, err := NewBigCache(cfg.Cache.BigCache, cfg.Cache.TTL, client.clock, client.logger)
		if err != nil {
			return nil, err
		}
		client.cache = bc
		client.defaultCache = false
	case CacheBackendRedis:
		rdb, err := NewRedisClient(*cfg.Cache.Redis)
		if err != nil {
			return nil, err
		}
		client.cache = NewRedisCache(rdb, *cfg.Cache.Redis, client.clock, client.logger)
		client.defaultCache = false
	}

	return client, nil
}

// Close releases the cache backend when it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
