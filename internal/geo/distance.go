// Package geo implements the geospatial threat engine: great-circle
// distance, coordinate-order normalization, encoded-polyline handling, and
// proximity-based threat analysis over assessed events.
package geo

import "math"

// earthRadiusKM is the mean Earth radius used by the haversine formula.
const earthRadiusKM = 6371.0

// Point is a WGS-84 coordinate in unambiguous lat/lon order.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Haversine returns the great-circle distance in kilometers between two
// points. The intermediate sin^2 term is clamped to [0,1] to absorb
// floating-point overshoot near coincident and antipodal inputs; degenerate
// inputs return a finite 0 rather than NaN.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	h = math.Max(0, math.Min(1, h))

	c := 2 * math.Asin(math.Sqrt(h))
	if math.IsNaN(c) {
		return 0
	}
	return earthRadiusKM * c
}

// NormalizeOrder disambiguates a stored coordinate pair whose order depends
// on the source: GeoJSON feeds write [lon, lat], others [lat, lon].
// Heuristic: when the first component fits a latitude (|c0| <= 90) and the
// second cannot (|c1| > 90) the pair is read as [lat, lon]; otherwise
// [lon, lat] is assumed. The heuristic is lossy for points where both
// components are within +/-90 (the equator/prime-meridian quadrant); that
// limitation is accepted rather than silently "fixed".
// ok is false when the pair is absent or not a pair.
func NormalizeOrder(coords []float64) (p Point, ok bool) {
	if len(coords) != 2 {
		return Point{}, false
	}
	if math.Abs(coords[0]) <= 90 && math.Abs(coords[1]) > 90 {
		return Point{Lat: coords[0], Lon: coords[1]}, true
	}
	return Point{Lat: coords[1], Lon: coords[0]}, true
}
