package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(maxEntries int) *Cache {
	return New(Config{
		MaxEntries:   maxEntries,
		DefaultTTL:   time.Hour,
		AggregateTTL: 6 * time.Hour,
		VolatileTTL:  30 * time.Minute,
	}, nil)
}

func TestKeyNormalization(t *testing.T) {
	// Case and surrounding whitespace must not split cache entries.
	assert.Equal(t,
		Key("tenant-1", "Total ventas 2024"),
		Key("tenant-1", "  total VENTAS 2024  "))

	assert.NotEqual(t,
		Key("tenant-1", "Total ventas 2024"),
		Key("tenant-2", "Total ventas 2024"))
}

func TestGetSet(t *testing.T) {
	c := newTestCache(10)

	_, ok := c.Get("tenant-1", "Total ventas 2024")
	assert.False(t, ok)

	c.Set("tenant-1", "Total ventas 2024", "respuesta", "SELECT 1")

	got, ok := c.Get("tenant-1", "  total VENTAS 2024  ")
	require.True(t, ok)
	assert.Equal(t, "respuesta", got)

	// Another tenant never sees the entry.
	_, ok = c.Get("tenant-2", "Total ventas 2024")
	assert.False(t, ok)
}

func TestTTLTiers(t *testing.T) {
	c := newTestCache(10)

	assert.Equal(t, 6*time.Hour, c.TTLFor("SELECT SUM(venta) FROM ventas"))
	assert.Equal(t, 6*time.Hour, c.TTLFor("select count(*) from ventas"))
	assert.Equal(t, 6*time.Hour, c.TTLFor("SELECT AVG(precio) FROM ventas"))
	assert.Equal(t, 30*time.Minute, c.TTLFor("SELECT * FROM v WHERE fecha = CURDATE()"))
	assert.Equal(t, 30*time.Minute, c.TTLFor("SELECT NOW()"))
	assert.Equal(t, time.Hour, c.TTLFor("SELECT nombre FROM productos"))

	// Aggregate wins when both markers appear, matching tier order.
	assert.Equal(t, 6*time.Hour, c.TTLFor("SELECT SUM(v) FROM t WHERE f >= NOW()"))
}

func TestLazyExpiry(t *testing.T) {
	c := newTestCache(10)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("tenant-1", "pregunta", "valor", "SELECT NOW()")

	c.now = func() time.Time { return base.Add(29 * time.Minute) }
	_, ok := c.Get("tenant-1", "pregunta")
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(31 * time.Minute) }
	_, ok = c.Get("tenant-1", "pregunta")
	assert.False(t, ok, "volatile entries expire within 30 minutes")
}

func TestLRUEviction(t *testing.T) {
	c := newTestCache(2)
	base := time.Now()
	clock := base
	c.now = func() time.Time { return clock }

	c.Set("t", "q1", 1, "")
	clock = base.Add(time.Second)
	c.Set("t", "q2", 2, "")

	// Touch q1 so q2 becomes the LRU entry.
	clock = base.Add(2 * time.Second)
	_, _ = c.Get("t", "q1")

	clock = base.Add(3 * time.Second)
	c.Set("t", "q3", 3, "")

	_, ok := c.Get("t", "q1")
	assert.True(t, ok)
	_, ok = c.Get("t", "q2")
	assert.False(t, ok, "least recently used entry is evicted at the bound")
	_, ok = c.Get("t", "q3")
	assert.True(t, ok)
}

func TestInvalidateTenant(t *testing.T) {
	c := newTestCache(10)

	c.Set("tenant-1", "q1", 1, "")
	c.Set("tenant-1", "q2", 2, "")
	c.Set("tenant-2", "q1", 3, "")

	removed := c.Invalidate("tenant-1")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("tenant-1", "q1")
	assert.False(t, ok)
	_, ok = c.Get("tenant-2", "q1")
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	c := newTestCache(10)

	c.Set("t", "q", "v", "")
	_, _ = c.Get("t", "q")     // hit
	_, _ = c.Get("t", "other") // miss

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Keys)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestSweepRemovesExpired(t *testing.T) {
	c := newTestCache(10)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("t", "q", "v", "SELECT NOW()")
	c.now = func() time.Time { return base.Add(time.Hour) }
	c.Sweep()

	assert.Equal(t, 0, c.Stats().Keys)
}
