package googlemaps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-intel-service/internal/geo"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
)

type countingPlaces struct {
	calls  int
	places []geo.Place
	err    error
}

func (c *countingPlaces) NearbySearch(_ context.Context, _ geo.Point, _ int, _ string) ([]geo.Place, error) {
	c.calls++
	return c.places, c.err
}

var cacheCenter = geo.Point{Lat: 40.5, Lon: -74.45}

func TestCachedPlaces_HitSkipsInner(t *testing.T) {
	inner := &countingPlaces{places: []geo.Place{{Name: "hospital"}}}
	cached := NewCachedPlaces(inner, 10, observability.NewMetricsForTesting())

	first, err := cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.NoError(t, err)
	second, err := cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedPlaces_KeyIncludesRadiusAndCategory(t *testing.T) {
	inner := &countingPlaces{places: []geo.Place{{Name: "place"}}}
	cached := NewCachedPlaces(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.NoError(t, err)
	_, err = cached.NearbySearch(context.Background(), cacheCenter, 10000, "hospital")
	require.NoError(t, err)
	_, err = cached.NearbySearch(context.Background(), cacheCenter, 5000, "police")
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}

func TestCachedPlaces_NearbyPositionsShareEntry(t *testing.T) {
	inner := &countingPlaces{places: []geo.Place{{Name: "place"}}}
	cached := NewCachedPlaces(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.NearbySearch(context.Background(), geo.Point{Lat: 40.50001, Lon: -74.45001}, 5000, "hospital")
	require.NoError(t, err)
	_, err = cached.NearbySearch(context.Background(), geo.Point{Lat: 40.50004, Lon: -74.45004}, 5000, "hospital")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedPlaces_ErrorNotCached(t *testing.T) {
	inner := &countingPlaces{err: errors.New("quota exceeded")}
	cached := NewCachedPlaces(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.Error(t, err)
	_, err = cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedPlaces_EmptyResultNotCached(t *testing.T) {
	inner := &countingPlaces{}
	cached := NewCachedPlaces(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.NoError(t, err)
	_, err = cached.NearbySearch(context.Background(), cacheCenter, 5000, "hospital")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newLRUCache(2)
	cache.put("a", []geo.Place{{Name: "a"}})
	cache.put("b", []geo.Place{{Name: "b"}})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := cache.get("a")
	require.True(t, ok)

	cache.put("c", []geo.Place{{Name: "c"}})

	_, ok = cache.get("a")
	assert.True(t, ok)
	_, ok = cache.get("b")
	assert.False(t, ok)
	_, ok = cache.get("c")
	assert.True(t, ok)
}
