package geo

import (
	"math"
	"strconv"
)

// BoundingBox is an axis-aligned lat/lng rectangle defining a subscription
// region.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Key returns the canonical fixed-precision identity of the box. Two boxes
// whose fields agree to 6 decimal places share a key.
func (b BoundingBox) Key() string {
	return strconv.FormatFloat(b.MinLat, 'f', 6, 64) + "," +
		strconv.FormatFloat(b.MaxLat, 'f', 6, 64) + "," +
		strconv.FormatFloat(b.MinLng, 'f', 6, 64) + "," +
		strconv.FormatFloat(b.MaxLng, 'f', 6, 64)
}

// Contains reports whether the coordinate lies inside the box (inclusive).
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Valid reports whether every field is a finite number and the mins are
// strictly below the maxes. Malformed client payloads fail here instead of
// propagating NaN bounds into the filters downstream.
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.MinLat, b.MaxLat, b.MinLng, b.MaxLng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MinLat < b.MaxLat && b.MinLng < b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLng >= -180 && b.MaxLng <= 180
}
