package mapquest

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"golang.org/x/sync/singleflight"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Concurrent
// lookups of the same city share one upstream request.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, city, state string) (geo.Point, error) {
	key := city + "|" + state
	if p, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return p, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	// The shared lookup outlives any one caller's cancellation; each caller
	// still stops waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		p, err := c.inner.Geocode(shared, city, state)
		if err != nil {
			return geo.Point{}, err
		}
		// Failures are not cached so a transient miss can be retried.
		c.cache.put(key, p)
		return p, nil
	})

	select {
	case <-ctx.Done():
		return geo.Point{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return geo.Point{}, res.Err
		}
		return res.Val.(geo.Point), nil
	}
}

// lruCache is a thread-safe LRU of geocoded points. The front of order is
// the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key   string
	value geo.Point
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) (geo.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return geo.Point{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value geo.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
