package localembed

import (
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// Cache defaults.
const (
	DefaultMaxEntries = 10000
	DefaultEvictBatch = 2000
	DefaultKeyChars   = 300
)

// Cache is a bounded vector cache keyed by a normalized text prefix.
// When a new key would exceed MaxEntries, the EvictBatch oldest-inserted keys are dropped
// together. Reads do not refresh an entry's position, so this is FIFO, not LRU.
type Cache struct {
	mu         sync.Mutex
	entries    map[string][]float32
	order      []string
	maxEntries int
	evictBatch int
	keyChars   int

	hits, misses, evicted uint64
}

// CacheConfig sizes a Cache. Zero fields take defaults.
type CacheConfig struct {
	MaxEntries int
	EvictBatch int
	KeyChars   int
}

// NewCache creates an empty cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.EvictBatch <= 0 {
		cfg.EvictBatch = DefaultEvictBatch
	}
	if cfg.EvictBatch > cfg.MaxEntries {
		cfg.EvictBatch = cfg.MaxEntries
	}
	if cfg.KeyChars <= 0 {
		cfg.KeyChars = DefaultKeyChars
	}
	return &Cache{
		entries:    make(map[string][]float32, cfg.MaxEntries),
		maxEntries: cfg.MaxEntries,
		evictBatch: cfg.EvictBatch,
		keyChars:   cfg.KeyChars,
	}
}

// Key derives the cache key: lowercase text cut to the first keyChars runes.
func Key(text string, keyChars int) string {
	lower := strings.ToLower(text)
	if utf8.RuneCountInString(lower) <= keyChars {
		return lower
	}
	return string([]rune(lower)[:keyChars])
}

// Get returns a copy of the cached vector for text.
func (c *Cache) Get(text string) ([]float32, bool) {
	key := Key(text, c.keyChars)

	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return slices.Clone(v), true
}

// Put stores vec for text and returns how many entries were evicted to make room.
func (c *Cache) Put(text string, vec []float32) int {
	key := Key(text, c.keyChars)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = slices.Clone(vec)
		return 0
	}

	var n int
	if len(c.entries) >= c.maxEntries {
		var evicted []string
		evicted, c.order = EvictOldest(c.order, c.evictBatch)
		for _, k := range evicted {
			delete(c.entries, k)
		}
		n = len(evicted)
		c.evicted += uint64(n)
	}

	c.entries[key] = slices.Clone(vec)
	c.order = append(c.order, key)
	return n
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit, miss and eviction counts.
func (c *Cache) Stats() (hits, misses, evicted uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evicted
}

// EvictOldest splits an insertion-ordered key list into the n oldest keys and the rest.
// The remainder is copied so the evicted prefix's backing array can be collected.
func EvictOldest(order []string, n int) (evicted, remaining []string) {
	if n <= 0 {
		return nil, order
	}
	if n >= len(order) {
		return order, nil
	}
	return order[:n], slices.Clone(order[n:])
}
