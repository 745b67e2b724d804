package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crisis-intel-service/internal/geo"
)

func TestDecodePolyline_GoogleReferenceSample(t *testing.T) {
	points, err := geo.DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, points, 3)

	want := []geo.Point{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	}
	for i := range want {
		assert.InDelta(t, want[i].Lat, points[i].Lat, 1e-5)
		assert.InDelta(t, want[i].Lon, points[i].Lon, 1e-5)
	}
}

func TestDecodePolyline_Empty(t *testing.T) {
	points, err := geo.DecodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDecodePolyline_Truncated(t *testing.T) {
	// Drop the final byte so the last coordinate chunk never terminates.
	_, err := geo.DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq")
	assert.Error(t, err)
}

func TestDecodePolyline_InvalidByte(t *testing.T) {
	_, err := geo.DecodePolyline("_p~iF\x01ps|U")
	assert.Error(t, err)
}

func TestEncodePolyline_RoundTrip(t *testing.T) {
	original := []geo.Point{
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 40.4862, Lon: -74.4518},
		{Lat: 39.9526, Lon: -75.1652},
	}

	decoded, err := geo.DecodePolyline(geo.EncodePolyline(original))
	require.NoError(t, err)
	require.Len(t, decoded, len(original))
	for i := range original {
		assert.InDelta(t, original[i].Lat, decoded[i].Lat, 1e-5)
		assert.InDelta(t, original[i].Lon, decoded[i].Lon, 1e-5)
	}
}
