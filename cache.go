package collectorpro

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// CacheEntry represents a cached response payload.
type CacheEntry struct {
	Key        string        `json:"key"`
	Body       []byte        `json:"body"`
	StatusCode int           `json:"status_code"`
	Header     http.Header   `json:"header,omitempty"`
	StoredAt   time.Time     `json:"stored_at"`
	TTL        time.Duration `json:"ttl"`
}

// Fresh reports whether the entry is still usable at now.
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// Cache stores response payloads by key. Implementations must be safe for
// concurrent use and must never return an entry that is not Fresh.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry)
	Delete(key string)
	Clear()
	ClearExpired() int
	Len() int
}

// CacheStats is a diagnostic snapshot of the client cache.
type CacheStats struct {
	Entries int
	Enabled bool
}

const defaultShardCount = 16

// InMemoryCache is a sharded map cache with lazy eviction.
type InMemoryCache struct {
	shards    []*cacheShard
	numShards int
	clock     clock.Clock
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

// NewInMemoryCache creates an in-memory cache driven by the wall clock.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithClock(clock.New())
}

// NewInMemoryCacheWithClock creates an in-memory cache reading time from clk.
func NewInMemoryCacheWithClock(clk clock.Clock) *InMemoryCache {
	shards := make([]*cacheShard, defaultShardCount)
	for i := range shards {
		shards[i] = &cacheShard{
			store: make(map[string]*CacheEntry),
		}
	}
	return &InMemoryCache{
		shards:    shards,
		numShards: defaultShardCount,
		clock:     clk,
	}
}

func (c *InMemoryCache) getShard(key string) *cacheShard {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return c.shards[hash.Sum32()%uint32(c.numShards)]
}

func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	entry, exists := shard.store[key]
	shard.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if !entry.Fresh(c.clock.Now()) {
		shard.mu.Lock()
		// a concurrent Set may have replaced the stale entry
		if current, ok := shard.store[key]; ok && current == entry {
			delete(shard.store, key)
		}
		shard.mu.Unlock()
		return nil, false
	}

	return entry, true
}

func (c *InMemoryCache) Set(key string, entry *CacheEntry) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.store[key] = entry
}

func (c *InMemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

func (c *InMemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]*CacheEntry)
		shard.mu.Unlock()
	}
}

// ClearExpired evicts every stale entry and returns how many were removed.
func (c *InMemoryCache) ClearExpired() int {
	now := c.clock.Now()
	removed := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		for key, entry := range shard.store {
			if !entry.Fresh(now) {
				delete(shard.store, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

func (c *InMemoryCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

// DefaultCacheKeyFunc digests method, URL and body.
func DefaultCacheKeyFunc(desc *RequestDescriptor) string {
	h := sha256.New()
	h.Write([]byte(desc.Method))
	h.Write([]byte{'\n'})
	h.Write([]byte(desc.URL))
	h.Write([]byte{'\n'})
	h.Write(desc.Body)
	return hex.EncodeToString(h.Sum(nil))
}

// DefaultCacheCondition caches GET requests only.
func DefaultCacheCondition(desc *RequestDescriptor) bool {
	return desc.Method == http.MethodGet
}

func (c *Client) shouldCacheRequest(desc *RequestDescriptor) bool {
	if c.cache == nil {
		return false
	}

	if desc.cache != nil && desc.cache.enabled != nil {
		// PUT and DELETE mutate by definition and can never be flagged as reads
		if desc.Method == http.MethodPut || desc.Method == http.MethodDelete {
			return false
		}
		return *desc.cache.enabled
	}

	return c.cacheCondition(desc)
}

func (c *Client) getCacheTTLForRequest(desc *RequestDescriptor) time.Duration {
	if desc.cache != nil && desc.cache.ttl > 0 {
		return desc.cache.ttl
	}

	return c.cacheTTL
}

func (c *Client) newCacheEntry(key string, resp *Response, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Key:        key,
		Body:       bytes.Clone(resp.Body),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		StoredAt:   resp.Timestamp,
		TTL:        ttl,
	}
}

// responseFromCache hands out a private copy so callers cannot alter the entry.
func responseFromCache(entry *CacheEntry) *Response {
	return &Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       bytes.Clone(entry.Body),
		Timestamp:  entry.StoredAt,
		Cached:     true,
	}
}

// ClearCache drops every cached entry.
func (c *Client) ClearCache() {
	if c.cache == nil {
		return
	}
	c.cache.Clear()
	c.metrics.RecordCacheSize(c.name, 0)
}

// ClearExpiredCache evicts stale entries, leaving live ones untouched.
func (c *Client) ClearExpiredCache() int {
	if c.cache == nil {
		return 0
	}
	removed := c.cache.ClearExpired()
	if c.metrics != nil {
		c.metrics.RecordCacheSize(c.name, c.cache.Len())
	}
	if removed > 0 && c.debugEnabled(c.debug.LogCache) {
		c.logger.Debug("Expired cache entries evicted", "count", removed)
	}
	return removed
}

// CacheStats reports the current entry count.
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return CacheStats{Entries: c.cache.Len(), Enabled: true}
}

// WithCacheDisabled forces a call to bypass the cache.
func WithCacheDisabled() RequestOption {
	return func(d *RequestDescriptor) {
		enabled := false
		d.cacheControl().enabled = &enabled
	}
}

// WithCacheEnabled marks a call as cache-eligible regardless of method, for
// idempotent reads sent as POST.
func WithCacheEnabled() RequestOption {
	return func(d *RequestDescriptor) {
		enabled := true
		d.cacheControl().enabled = &enabled
	}
}

// WithCacheTTL overrides the TTL stored with this call's response.
func WithCacheTTL(ttl time.Duration) RequestOption {
	return func(d *RequestDescriptor) {
		d.cacheControl().ttl = ttl
	}
}

// WithHeader sets a request header for one call.
func WithHeader(key, value string) RequestOption {
	return func(d *RequestDescriptor) {
		if d.Header == nil {
			d.Header = make(http.Header)
		}
		d.Header.Set(key, value)
	}
}

func (d *RequestDescriptor) cacheControl() *cacheControl {
	if d.cache == nil {
		d.cache = &cacheControl{}
	}
	return d.cache
}
