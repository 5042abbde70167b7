// Package schemacache memoizes discovered schemas per tenant with a TTL,
// persisted in the engine store so entries survive process restarts.
package schemacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/schema"
)

// Entry is one persisted cache row, keyed uniquely by tenant.
type Entry struct {
	TenantID            string
	SchemaData          []byte
	MainTable           string
	ColumnCount         int
	RowCount            int64
	DatabaseName        string
	DiscoveryDurationMS int64
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// Store persists cache entries. Upsert must have insert-or-update semantics
// so concurrent misses for the same tenant resolve last-writer-wins.
type Store interface {
	Get(ctx context.Context, tenantID string) (*Entry, error)
	Upsert(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, tenantID string) error
	Stats(ctx context.Context) (*StoreStats, error)
}

// StoreStats aggregates the persisted cache state.
type StoreStats struct {
	Tenants            int64   `json:"tenants"`
	AvgColumnCount     float64 `json:"avg_column_count"`
	AvgDiscoveryTimeMS float64 `json:"avg_discovery_ms"`
	Expired            int64   `json:"expired"`
}

// Discoverer produces a fresh schema descriptor for a tenant database.
type Discoverer interface {
	Discover(ctx context.Context) (*schema.Descriptor, error)
}

// Cache wires discovery behind the persisted per-tenant cache.
type Cache struct {
	store      Store
	discoverer Discoverer
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a schema cache. If logger is nil, a no-op logger is used.
func New(store Store, discoverer Discoverer, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:      store,
		discoverer: discoverer,
		ttl:        ttl,
		logger:     logger.Named("schemacache"),
		now:        time.Now,
	}
}

// Get returns the tenant's schema, running discovery synchronously on a miss
// or an expired entry. Expiry is lazy: nothing evicts rows in the
// background, the next read recomputes. Two concurrent misses may both run
// discovery; the store upsert keeps the row consistent.
func (c *Cache) Get(ctx context.Context, tenantID string) (*schema.Descriptor, error) {
	entry, err := c.store.Get(ctx, tenantID)
	switch {
	case err == nil && entry.ExpiresAt.After(c.now()):
		c.hits.Add(1)
		schemaCacheHits.Inc()
		var desc schema.Descriptor
		if err := json.Unmarshal(entry.SchemaData, &desc); err != nil {
			return nil, fmt.Errorf("decode cached schema for %s: %w", tenantID, err)
		}
		c.logger.Debug("schema cache hit", zap.String("tenant", tenantID))
		return &desc, nil
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("read schema cache for %s: %w", tenantID, err)
	}

	c.misses.Add(1)
	schemaCacheMisses.Inc()
	return c.discoverAndStore(ctx, tenantID)
}

// Refresh unconditionally drops the tenant's entry and recomputes it.
func (c *Cache) Refresh(ctx context.Context, tenantID string) (*schema.Descriptor, error) {
	if err := c.store.Delete(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("delete schema cache for %s: %w", tenantID, err)
	}
	return c.Get(ctx, tenantID)
}

func (c *Cache) discoverAndStore(ctx context.Context, tenantID string) (*schema.Descriptor, error) {
	c.logger.Info("discovering schema", zap.String("tenant", tenantID))

	start := c.now()
	desc, err := c.discoverer.Discover(ctx)
	if err != nil {
		// A failed discovery is never cached.
		return nil, fmt.Errorf("discover schema for %s: %w", tenantID, err)
	}
	duration := c.now().Sub(start)

	blob, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encode schema for %s: %w", tenantID, err)
	}

	var columnCount int
	var rowCount int64
	if main := desc.Table(desc.MainTable); main != nil {
		columnCount = len(main.Columns)
		rowCount = main.RowCount
	}

	entry := &Entry{
		TenantID:            tenantID,
		SchemaData:          blob,
		MainTable:           desc.MainTable,
		ColumnCount:         columnCount,
		RowCount:            rowCount,
		DatabaseName:        desc.DatabaseName,
		DiscoveryDurationMS: duration.Milliseconds(),
		CreatedAt:           c.now(),
		ExpiresAt:           c.now().Add(c.ttl),
	}
	if err := c.store.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("persist schema cache for %s: %w", tenantID, err)
	}

	return desc, nil
}

// Stats returns the persisted aggregates plus in-process hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (*CacheStats, error) {
	stored, err := c.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema cache stats: %w", err)
	}
	return &CacheStats{
		StoreStats: *stored,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}, nil
}

// CacheStats combines store aggregates and process-local counters.
type CacheStats struct {
	StoreStats
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}
