package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-intel-service/internal/geo"
)

var (
	newYork      = geo.Point{Lat: 40.7128, Lon: -74.0060}
	philadelphia = geo.Point{Lat: 39.9526, Lon: -75.1652}
)

func TestHaversine_KnownDistance(t *testing.T) {
	d := geo.Haversine(newYork, philadelphia)
	assert.InDelta(t, 130, d, 5)
}

func TestHaversine_Identity(t *testing.T) {
	assert.Zero(t, geo.Haversine(newYork, newYork))
}

func TestHaversine_Symmetry(t *testing.T) {
	assert.InDelta(t, geo.Haversine(newYork, philadelphia), geo.Haversine(philadelphia, newYork), 1e-9)
}

func TestHaversine_Antipodal(t *testing.T) {
	a := geo.Point{Lat: 0, Lon: 0}
	b := geo.Point{Lat: 0, Lon: 180}
	// Half the earth's circumference at R=6371.
	assert.InDelta(t, 20015, geo.Haversine(a, b), 5)
}

func TestNormalizeOrder(t *testing.T) {
	tests := []struct {
		name   string
		coords []float64
		want   geo.Point
		ok     bool
	}{
		{"lat lon order kept", []float64{45.0, 120.0}, geo.Point{Lat: 45.0, Lon: 120.0}, true},
		{"geojson lon lat swapped", []float64{120.0, 45.0}, geo.Point{Lat: 45.0, Lon: 120.0}, true},
		{"negative lon detected", []float64{-124.3, 40.32}, geo.Point{Lat: 40.32, Lon: -124.3}, true},
		{"nil", nil, geo.Point{}, false},
		{"wrong length", []float64{1, 2, 3}, geo.Point{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := geo.NormalizeOrder(tt.coords)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
