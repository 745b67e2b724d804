package geo

import (
	"fmt"
	"math"
	"strings"
)

// DecodePolyline decodes a routing-provider encoded polyline into an
// ordered sequence of points. The encoding packs signed lat/lon deltas in
// 1e-5 degree units as zig-zag integers split into 5-bit groups, each
// group offset by 63. Decoding then re-encoding reproduces the original
// string (the deltas are exact at 1e-5 resolution).
func DecodePolyline(encoded string) ([]Point, error) {
	var points []Point
	var lat, lon int64
	index := 0

	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		lat += dLat
		index = next

		dLon, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		lon += dLon
		index = next

		points = append(points, Point{Lat: float64(lat) / 1e5, Lon: float64(lon) / 1e5})
	}

	return points, nil
}

// decodeValue reads one variable-length signed delta starting at index and
// returns the delta plus the index of the next unread byte.
func decodeValue(encoded string, index int) (int64, int, error) {
	var result int64
	var shift uint
	for {
		if index >= len(encoded) {
			return 0, 0, fmt.Errorf("decode polyline: truncated at byte %d", index)
		}
		b := int64(encoded[index]) - 63
		if b < 0 {
			return 0, 0, fmt.Errorf("decode polyline: invalid byte %q at %d", encoded[index], index)
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	// zig-zag: low bit is the sign
	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// EncodePolyline is the inverse of DecodePolyline. It exists to verify the
// lossless round-trip property and to re-emit truncated route previews.
func EncodePolyline(points []Point) string {
	var sb strings.Builder
	var prevLat, prevLon int64

	for _, p := range points {
		lat := int64(math.Round(p.Lat * 1e5))
		lon := int64(math.Round(p.Lon * 1e5))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}

	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	v <<= 1
	if v < 0 {
		v = ^v
	}
	for v >= 0x20 {
		sb.WriteByte(byte((0x20 | (v & 0x1f)) + 63))
		v >>= 5
	}
	sb.WriteByte(byte(v + 63))
}
