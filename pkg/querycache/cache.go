// Package querycache memoizes final chatbot responses per (tenant,
// normalized question) with content-aware expiry. It is a process-local,
// bounded LRU map; staleness within the TTL tiers is an accepted tradeoff
// for reduced LLM-call volume.
package querycache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds cache bounds and TTL tiers.
type Config struct {
	MaxEntries int
	// DefaultTTL applies when the originating statement is neither
	// aggregate nor time-sensitive.
	DefaultTTL time.Duration
	// AggregateTTL applies to statements with SUM/COUNT/AVG: presumed
	// historical and stable.
	AggregateTTL time.Duration
	// VolatileTTL applies to statements referencing the current time.
	VolatileTTL time.Duration
}

// Cache is a concurrency-safe response cache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

type entry struct {
	value      any
	expiresAt  time.Time
	lastAccess time.Time
}

// New creates a query cache. If logger is nil, a no-op logger is used.
func New(cfg Config, logger *zap.Logger) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.AggregateTTL <= 0 {
		cfg.AggregateTTL = 6 * time.Hour
	}
	if cfg.VolatileTTL <= 0 {
		cfg.VolatileTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]*entry),
		cfg:     cfg,
		logger:  logger.Named("querycache"),
		now:     time.Now,
	}
}

// Key derives the cache key: tenant id combined with a hash of the
// lowercased, trimmed question. Questions that normalize identically
// intentionally collide.
func Key(tenantID, question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := md5.Sum([]byte(normalized))
	return tenantID + "_" + hex.EncodeToString(sum[:])[:12]
}

// Get returns the cached response for the tenant's question, if present and
// unexpired. Expiry is lazy; the sweep goroutine reclaims memory later.
func (c *Cache) Get(tenantID, question string) (any, bool) {
	key := Key(tenantID, question)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		c.misses++
		queryCacheMisses.Inc()
		return nil, false
	}

	e.lastAccess = c.now()
	c.hits++
	queryCacheHits.Inc()
	return e.value, true
}

// Set stores a response. The TTL tier is chosen from the statement that
// produced the response (see TTLFor).
func (c *Cache) Set(tenantID, question string, value any, statement string) {
	key := Key(tenantID, question)
	ttl := c.TTLFor(statement)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.MaxEntries {
		c.evictLRU()
	}

	c.entries[key] = &entry{
		value:      value,
		expiresAt:  c.now().Add(ttl),
		lastAccess: c.now(),
	}
}

// TTLFor assigns the content-based TTL tier for a statement.
func (c *Cache) TTLFor(statement string) time.Duration {
	upper := strings.ToUpper(statement)
	switch {
	case strings.Contains(upper, "SUM(") || strings.Contains(upper, "COUNT(") || strings.Contains(upper, "AVG("):
		return c.cfg.AggregateTTL
	case strings.Contains(upper, "NOW()") || strings.Contains(upper, "CURDATE()"):
		return c.cfg.VolatileTTL
	default:
		return c.cfg.DefaultTTL
	}
}

// Invalidate removes every entry scoped to the tenant. Used after an
// administrative schema refresh.
func (c *Cache) Invalidate(tenantID string) int {
	prefix := tenantID + "_"

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (c *Cache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccess
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
		queryCacheEvictions.Inc()
	}
}

// Sweep removes expired entries.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// StartSweeper starts a background goroutine that periodically removes
// expired entries.
func (c *Cache) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			c.Sweep()
		}
	}()
}

// Stats reports hit/miss counters and current size.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Keys      int     `json:"keys"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Keys:      len(c.entries),
		Evictions: c.evictions,
		HitRate:   rate,
	}
}
