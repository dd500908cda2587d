// Package geo provides the pure geometric primitives used for vehicle
// position interpolation: great-circle distance, closest-vertex search on a
// polyline and arc-length interpolation along a polyline span.
package geo

import (
	"math"
)

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the haversine great-circle distance between two
// coordinates in meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// ClosestPointOnPolyline scans the polyline vertices and returns the vertex
// closest to (lat, lng), its index and its distance in meters. Ties resolve
// to the lowest index. An empty polyline returns index -1.
func ClosestPointOnPolyline(polyline []Point, lat, lng float64) (Point, int, float64) {
	bestIdx := -1
	bestDist := math.MaxFloat64
	for i, p := range polyline {
		d := DistanceMeters(p.Lat, p.Lng, lat, lng)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return Point{}, -1, math.NaN()
	}
	return polyline[bestIdx], bestIdx, bestDist
}

// InterpolateAlongPolyline walks the vertices from startIndex to endIndex and
// returns the point at progress (0..1) of the accumulated arc length. The
// caller must pass startIndex <= endIndex; the degenerate span (equal indices
// or zero total length) returns the start vertex unchanged.
func InterpolateAlongPolyline(polyline []Point, startIndex, endIndex int, progress float64) Point {
	if len(polyline) == 0 {
		return Point{}
	}
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(polyline) {
		startIndex = len(polyline) - 1
	}
	if endIndex >= len(polyline) {
		endIndex = len(polyline) - 1
	}
	if startIndex >= endIndex {
		return polyline[startIndex]
	}
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}

	total := 0.0
	segLen := make([]float64, 0, endIndex-startIndex)
	for i := startIndex; i < endIndex; i++ {
		d := DistanceMeters(polyline[i].Lat, polyline[i].Lng, polyline[i+1].Lat, polyline[i+1].Lng)
		segLen = append(segLen, d)
		total += d
	}
	if total == 0 {
		return polyline[startIndex]
	}

	target := progress * total
	walked := 0.0
	for i, d := range segLen {
		if walked+d >= target {
			t := 0.0
			if d > 0 {
				t = (target - walked) / d
			}
			a := polyline[startIndex+i]
			b := polyline[startIndex+i+1]
			return Point{
				Lat: a.Lat + t*(b.Lat-a.Lat),
				Lng: a.Lng + t*(b.Lng-a.Lng),
			}
		}
		walked += d
	}
	return polyline[endIndex]
}

// Bearing returns the initial bearing from point 1 to point 2 in degrees
// (0..360).
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	b := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(b+360, 360)
}
