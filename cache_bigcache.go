package collectorpro

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/benbjohnson/clock"
)

// Ensure BigCache implements Cache
var _ Cache = (*BigCache)(nil)

// BigCacheConfig sizes the bigcache backend.
type BigCacheConfig struct {
	Shards       int `yaml:"shards" validate:"omitempty,min=1"`
	MaxSizeMB    int `yaml:"max_size_mb" validate:"omitempty,min=1"`
	MaxEntrySize int `yaml:"max_entry_size" validate:"omitempty,min=1"`
	MaxEntries   int `yaml:"max_entries" validate:"omitempty,min=1"`
}

const defaultBigCacheMaxEntries = 10000

// BigCache stores JSON-encoded entries in an allegro/bigcache instance.
// Freshness is decided by the entry's own StoredAt/TTL, so bigcache's
// LifeWindow only acts as a hard upper bound.
type BigCache struct {
	cache  *bigcache.BigCache
	clock  clock.Clock
	logger Logger
}

// NewBigCache creates a bigcache-backed Cache. lifeWindow bounds how long
// bigcache keeps any entry; use at least the largest TTL you plan to set.
func NewBigCache(cfg BigCacheConfig, lifeWindow time.Duration, clk clock.Clock, logger Logger) (*BigCache, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = NopLogger()
	}

	bcConfig := bigcache.DefaultConfig(lifeWindow)
	bcConfig.Verbose = false
	bcConfig.MaxEntriesInWindow = defaultBigCacheMaxEntries
	if cfg.MaxEntries > 0 {
		bcConfig.MaxEntriesInWindow = cfg.MaxEntries
	}
	if cfg.Shards > 0 {
		bcConfig.Shards = nextPowerOf2(cfg.Shards)
	}
	if cfg.MaxSizeMB > 0 {
		bcConfig.HardMaxCacheSize = cfg.MaxSizeMB
	}
	if cfg.MaxEntrySize > 0 {
		bcConfig.MaxEntrySize = cfg.MaxEntrySize
	}

	cache, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}

	return &BigCache{cache: cache, clock: clk, logger: logger}, nil
}

func (bc *BigCache) Get(key string) (*CacheEntry, bool) {
	data, err := bc.cache.Get(key)
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to decode bigcache entry", "key", key, "error", err)
		_ = bc.cache.Delete(key)
		return nil, false
	}

	if !entry.Fresh(bc.clock.Now()) {
		_ = bc.cache.Delete(key)
		return nil, false
	}

	return &entry, true
}

func (bc *BigCache) Set(key string, entry *CacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		bc.logger.Error("Failed to encode bigcache entry", "key", key, "error", err)
		return
	}

	if err := bc.cache.Set(key, data); err != nil {
		bc.logger.Error("Failed to store bigcache entry", "key", key, "error", err)
	}
}

func (bc *BigCache) Delete(key string) {
	_ = bc.cache.Delete(key)
}

func (bc *BigCache) Clear() {
	if err := bc.cache.Reset(); err != nil {
		bc.logger.Error("Failed to reset bigcache", "error", err)
	}
}

// ClearExpired walks every entry and deletes the stale ones.
func (bc *BigCache) ClearExpired() int {
	now := bc.clock.Now()
	var stale []string

	it := bc.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		var entry CacheEntry
		if err := json.Unmarshal(info.Value(), &entry); err != nil || !entry.Fresh(now) {
			stale = append(stale, info.Key())
		}
	}

	removed := 0
	for _, key := range stale {
		if err := bc.cache.Delete(key); err == nil {
			removed++
		}
	}
	return removed
}

func (bc *BigCache) Len() int {
	return bc.cache.Len()
}

// Close releases bigcache's background cleaner.
func (bc *BigCache) Close() error {
	return bc.cache.Close()
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
