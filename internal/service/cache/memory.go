package cache

import (
	"sync"
	"time"

	"CandleVault/internal/domain/models"
)

type entry struct {
	outcome     *models.ValidationOutcome
	insertedAt  time.Time
	lastAccess  time.Time
	accessCount int64
}

// score is the eviction rank: rarely-used entries lose first, last access
// breaking ties. Adequate while capacity stays small (at most a few
// hundred); revisit with a real LRU list if capacity ever grows past that.
func (e *entry) score() int64 {
	return e.accessCount*1000 + e.lastAccess.Unix()
}

// MemoryOption configures the memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	TTL      time.Duration
	Capacity int
}

// WithTTL sets entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.TTL = ttl }
}

// WithCapacity sets the entry bound.
func WithCapacity(n int) MemoryOption {
	return func(c *memoryConfig) { c.Capacity = n }
}

// MemoryCache is the in-process validation cache.
type MemoryCache struct {
	mu       sync.Mutex
	m        map[string]*entry
	ttl      time.Duration
	capacity int

	now func() time.Time // stubbed in tests
}

// NewMemoryCache creates a cache with 5-minute TTL and capacity 100 unless
// overridden.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &memoryConfig{
		TTL:      5 * time.Minute,
		Capacity: 100,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &MemoryCache{
		m:        make(map[string]*entry),
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		now:      time.Now,
	}
}

// Get returns the cached outcome for the field tuple. Entries past TTL are
// treated as absent and evicted on access.
func (c *MemoryCache) Get(fields models.FormInput) (*models.ValidationOutcome, bool) {
	key := Key(fields)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if now.Sub(e.insertedAt) >= c.ttl {
		delete(c.m, key)
		return nil, false
	}
	e.accessCount++
	e.lastAccess = now
	return e.outcome, true
}

// Set stores the outcome for the field tuple, evicting the lowest-scored
// entry when full.
func (c *MemoryCache) Set(fields models.FormInput, outcome *models.ValidationOutcome) {
	key := Key(fields)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.m[key]; !exists && len(c.m) >= c.capacity {
		c.evictLowest()
	}
	c.m[key] = &entry{
		outcome:     outcome,
		insertedAt:  now,
		lastAccess:  now,
		accessCount: 0,
	}
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Close implements ValidationCache; the memory variant has nothing to tear
// down.
func (c *MemoryCache) Close() error { return nil }

func (c *MemoryCache) evictLowest() {
	var worstKey string
	var worstScore int64
	first := true
	for key, e := range c.m {
		s := e.score()
		if first || s < worstScore {
			worstKey, worstScore = key, s
			first = false
		}
	}
	if worstKey != "" {
		delete(c.m, worstKey)
	}
}
