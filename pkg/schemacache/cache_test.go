package schemacache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacue/datacue-engine/pkg/apperrors"
	"github.com/datacue/datacue-engine/pkg/schema"
)

type fakeStore struct {
	entries map[string]*Entry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*Entry)}
}

func (s *fakeStore) Get(_ context.Context, tenantID string) (*Entry, error) {
	e, ok := s.entries[tenantID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return e, nil
}

func (s *fakeStore) Upsert(_ context.Context, entry *Entry) error {
	s.entries[entry.TenantID] = entry
	return nil
}

func (s *fakeStore) Delete(_ context.Context, tenantID string) error {
	delete(s.entries, tenantID)
	return nil
}

func (s *fakeStore) Stats(_ context.Context) (*StoreStats, error) {
	return &StoreStats{Tenants: int64(len(s.entries))}, nil
}

type stubDiscoverer struct {
	calls int
	desc  *schema.Descriptor
	err   error
}

func (d *stubDiscoverer) Discover(context.Context) (*schema.Descriptor, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.desc, nil
}

func testDescriptor() *schema.Descriptor {
	return &schema.Descriptor{
		DatabaseName: "salesdb",
		MainTable:    "ventas",
		Tables: []schema.Table{{
			Name:     "ventas",
			RowCount: 1000,
			Columns: []schema.Column{
				{Name: "fecha", DataType: "date", Role: schema.RoleDate},
				{Name: "venta_neta", DataType: "decimal", Role: schema.RoleMetricMonetary},
			},
		}},
		BusinessTerms: map[string]string{schema.TermVenta: "venta_neta"},
	}
}

func TestCache_MissThenHit(t *testing.T) {
	store := newFakeStore()
	disc := &stubDiscoverer{desc: testDescriptor()}
	cache := New(store, disc, 24*time.Hour, nil)

	ctx := context.Background()

	first, err := cache.Get(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "ventas", first.MainTable)
	assert.Equal(t, 1, disc.calls)

	// The miss persisted an entry with denormalized counts.
	entry := store.entries["tenant-a"]
	require.NotNil(t, entry)
	assert.Equal(t, "ventas", entry.MainTable)
	assert.Equal(t, 2, entry.ColumnCount)
	assert.Equal(t, int64(1000), entry.RowCount)
	assert.True(t, entry.ExpiresAt.After(time.Now()))

	second, err := cache.Get(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, first.MainTable, second.MainTable)
	assert.Equal(t, 1, disc.calls, "hit must not re-run discovery")
}

func TestCache_ExpiredEntryTriggersOneDiscovery(t *testing.T) {
	store := newFakeStore()
	disc := &stubDiscoverer{desc: testDescriptor()}
	cache := New(store, disc, 24*time.Hour, nil)

	store.entries["tenant-a"] = &Entry{
		TenantID:   "tenant-a",
		SchemaData: []byte(`{"main_table":"stale"}`),
		ExpiresAt:  time.Now().Add(-time.Minute),
	}

	desc, err := cache.Get(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "ventas", desc.MainTable)
	assert.Equal(t, 1, disc.calls)
}

func TestCache_GetAfterRefreshDoesNotRediscover(t *testing.T) {
	store := newFakeStore()
	disc := &stubDiscoverer{desc: testDescriptor()}
	cache := New(store, disc, 24*time.Hour, nil)

	ctx := context.Background()

	_, err := cache.Refresh(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 1, disc.calls)

	_, err = cache.Get(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 1, disc.calls, "refresh already populated the cache")
}

func TestCache_FailedDiscoveryIsNotCached(t *testing.T) {
	store := newFakeStore()
	disc := &stubDiscoverer{err: assert.AnError}
	cache := New(store, disc, 24*time.Hour, nil)

	_, err := cache.Get(context.Background(), "tenant-a")
	require.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestCache_Stats(t *testing.T) {
	store := newFakeStore()
	disc := &stubDiscoverer{desc: testDescriptor()}
	cache := New(store, disc, 24*time.Hour, nil)

	ctx := context.Background()
	_, _ = cache.Get(ctx, "tenant-a") // miss
	_, _ = cache.Get(ctx, "tenant-a") // hit

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Tenants)
}
