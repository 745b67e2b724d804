package googlemaps

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/crisis-intel-service/internal/geo"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
)

// CachedPlaces wraps a PlacesClient with an in-memory LRU cache. Facility
// sets change slowly, so repeated safety checks around the same position
// should not burn API quota.
type CachedPlaces struct {
	inner   geo.PlacesClient
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedPlaces creates a cache decorator around a places client.
func NewCachedPlaces(inner geo.PlacesClient, maxEntries int, metrics *observability.Metrics) *CachedPlaces {
	return &CachedPlaces{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedPlaces) NearbySearch(ctx context.Context, center geo.Point, radiusMeters int, category string) ([]geo.Place, error) {
	// Positions are bucketed at ~11m resolution so jittery GPS fixes
	// still hit the cache.
	key := fmt.Sprintf("%.4f,%.4f|%d|%s", center.Lat, center.Lon, radiusMeters, category)
	if places, ok := c.cache.get(key); ok {
		c.metrics.PlacesCache.WithLabelValues("hit").Inc()
		return places, nil
	}
	c.metrics.PlacesCache.WithLabelValues("miss").Inc()

	places, err := c.inner.NearbySearch(ctx, center, radiusMeters, category)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so transient ZERO_RESULTS responses
	// can be retried.
	if len(places) > 0 {
		c.cache.put(key, places)
	}
	return places, nil
}

// lruCache is a simple thread-safe LRU cache for place result sets.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []geo.Place
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]geo.Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []geo.Place) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
