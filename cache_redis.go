package collectorpro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
)

//go:generate mockgen -source=cache_redis.go -destination=mock/redis_client.go -package=mock

// RedisClient is the subset of the go-redis client used by RedisCache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr         string        `yaml:"addr" validate:"required,hostname_port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"min=0"`
	Prefix       string        `yaml:"prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	OpTimeout    time.Duration `yaml:"op_timeout"`
	PoolSize     int           `yaml:"pool_size" validate:"min=0"`
	ScanPageSize int64         `yaml:"scan_page_size" validate:"min=0"`
}

const (
	defaultRedisPrefix    = "collectorpro"
	defaultRedisOpTimeout = 500 * time.Millisecond
	defaultRedisScanCount = 100
)

// RedisCache keeps JSON-encoded entries in Redis under a key prefix. Each
// key carries a native expiry equal to the entry TTL.
type RedisCache struct {
	client    RedisClient
	prefix    string
	opTimeout time.Duration
	scanCount int64
	clock     clock.Clock
	logger    Logger
}

// NewRedisClient dials Redis and verifies connectivity.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
		PoolSize:    cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisCache wraps client as a Cache.
func NewRedisCache(client RedisClient, cfg RedisConfig, clk clock.Clock, logger Logger) *RedisCache {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = NopLogger()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultRedisOpTimeout
	}
	scanCount := cfg.ScanPageSize
	if scanCount <= 0 {
		scanCount = defaultRedisScanCount
	}
	return &RedisCache{
		client:    client,
		prefix:    prefix,
		opTimeout: opTimeout,
		scanCount: scanCount,
		clock:     clk,
		logger:    logger,
	}
}

func (rc *RedisCache) namespaced(key string) string {
	return rc.prefix + ":" + key
}

func (rc *RedisCache) Get(key string) (*CacheEntry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()

	data, err := rc.client.Get(ctx, rc.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		rc.logger.Warn("Redis cache get failed", "key", key, "error", err)
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		rc.logger.Warn("Failed to decode redis cache entry", "key", key, "error", err)
		rc.Delete(key)
		return nil, false
	}

	if !entry.Fresh(rc.clock.Now()) {
		rc.Delete(key)
		return nil, false
	}

	return &entry, true
}

func (rc *RedisCache) Set(key string, entry *CacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		rc.logger.Error("Failed to encode redis cache entry", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()

	if err := rc.client.Set(ctx, rc.namespaced(key), data, entry.TTL).Err(); err != nil {
		rc.logger.Error("Failed to store redis cache entry", "key", key, "error", err)
	}
}

func (rc *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()

	if err := rc.client.Del(ctx, rc.namespaced(key)).Err(); err != nil {
		rc.logger.Error("Failed to delete redis cache entry", "key", key, "error", err)
	}
}

// Clear deletes every key under the prefix.
func (rc *RedisCache) Clear() {
	keys := rc.scanKeys()
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
	defer cancel()

	if err := rc.client.Del(ctx, keys...).Err(); err != nil {
		rc.logger.Error("Failed to clear redis cache", "error", err)
	}
}

// ClearExpired removes entries whose embedded timestamp is stale. Redis
// expires keys on its own; this catches entries written by clients whose
// clocks disagree with ours.
func (rc *RedisCache) ClearExpired() int {
	now := rc.clock.Now()
	removed := 0
	for _, nsKey := range rc.scanKeys() {
		ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
		data, err := rc.client.Get(ctx, nsKey).Bytes()
		cancel()
		if err != nil {
			continue
		}

		var entry CacheEntry
		if err := json.Unmarshal(data, &entry); err == nil && entry.Fresh(now) {
			continue
		}

		ctx, cancel = context.WithTimeout(context.Background(), rc.opTimeout)
		if err := rc.client.Del(ctx, nsKey).Err(); err == nil {
			removed++
		}
		cancel()
	}
	return removed
}

func (rc *RedisCache) Len() int {
	return len(rc.scanKeys())
}

// Close closes the underlying client.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) scanKeys() []string {
	var (
		keys   []string
		cursor uint64
	)
	match := rc.prefix + ":*"
	for {
		ctx, cancel := context.WithTimeout(context.Background(), rc.opTimeout)
		page, next, err := rc.client.Scan(ctx, cursor, match, rc.scanCount).Result()
		cancel()
		if err != nil {
			rc.logger.Error("Redis scan failed", "match", match, "error", err)
			return keys
		}
		keys = append(keys, page...)
		if next == 0 {
			return keys
		}
		cursor = next
	}
}
