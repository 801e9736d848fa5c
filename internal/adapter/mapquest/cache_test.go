package mapquest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls atomic.Int32
	point geo.Point
	err   error
	delay time.Duration
}

func (m *countingGeocoder) Geocode(_ context.Context, _, _ string) (geo.Point, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.point, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{point: geo.Point{Lat: 37.67, Lng: -122.08}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	p1, err := cached.Geocode(context.Background(), "Hayward", "CA")
	require.NoError(t, err)
	p2, err := cached.Geocode(context.Background(), "Hayward", "CA")
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.Equal(t, int32(1), inner.calls.Load(), "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{point: geo.Point{Lat: 1, Lng: 2}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.Geocode(context.Background(), "Hayward", "CA")
	_, _ = cached.Geocode(context.Background(), "Hayward", "WI")

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedGeocoder_ErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{err: domain.ErrGeocode}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Geocode(context.Background(), "Atlantis", "CA")
	require.ErrorIs(t, err, domain.ErrGeocode)
	_, err = cached.Geocode(context.Background(), "Atlantis", "CA")
	require.ErrorIs(t, err, domain.ErrGeocode)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 0, cached.cache.len())
}

func TestCachedGeocoder_ConcurrentLookupsShareRequest(t *testing.T) {
	inner := &countingGeocoder{point: geo.Point{Lat: 1, Lng: 2}, delay: 50 * time.Millisecond}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := cached.Geocode(context.Background(), "Hayward", "CA")
			assert.NoError(t, err)
			assert.Equal(t, geo.Point{Lat: 1, Lng: 2}, p)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}

type gatedGeocoder struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedGeocoder) Geocode(ctx context.Context, _, _ string) (geo.Point, error) {
	g.calls.Add(1)
	close(g.started)
	<-g.release
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}
	return geo.Point{Lat: 1, Lng: 2}, nil
}

func TestCachedGeocoder_CallerCancelDoesNotFailSharedLookup(t *testing.T) {
	inner := &gatedGeocoder{started: make(chan struct{}), release: make(chan struct{})}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := cached.Geocode(ctx, "Hayward", "CA")
		errc <- err
	}()

	<-inner.started
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	close(inner.release)
	require.Eventually(t, func() bool { return cached.cache.len() == 1 }, time.Second, 5*time.Millisecond)

	p, err := cached.Geocode(context.Background(), "Hayward", "CA")
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 1, Lng: 2}, p)
	assert.Equal(t, int32(1), inner.calls.Load())
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", geo.Point{Lat: 1})
	c.put("b", geo.Point{Lat: 2})

	p, ok := c.get("a")
	assert.True(t, ok)
	assert.InDelta(t, 1, p.Lat, 0)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", geo.Point{Lat: 1})
	c.put("b", geo.Point{Lat: 2})
	c.put("c", geo.Point{Lat: 3}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", geo.Point{Lat: 1})
	c.put("b", geo.Point{Lat: 2})
	c.get("a")
	c.put("c", geo.Point{Lat: 3})

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", geo.Point{Lat: 1})
	c.put("a", geo.Point{Lat: 2})

	p, ok := c.get("a")
	assert.True(t, ok)
	assert.InDelta(t, 2, p.Lat, 0)
	assert.Equal(t, 1, c.len())
}
