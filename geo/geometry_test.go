package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "identical points",
			lat1: 40.7128, lng1: -74.0060, lat2: 40.7128, lng2: -74.0060,
			want: 0, tolerance: 0.001,
		},
		{
			name: "one degree of latitude",
			lat1: 40.0, lng1: -74.0, lat2: 41.0, lng2: -74.0,
			want: 111195, tolerance: 100,
		},
		{
			name: "grand central to times square",
			lat1: 40.7527, lng1: -73.9772, lat2: 40.7580, lng2: -73.9855,
			want: 915, tolerance: 30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f, want %f ± %f", got, tt.want, tt.tolerance)
			}
			if got < 0 {
				t.Errorf("distance must never be negative, got %f", got)
			}
			back := DistanceMeters(tt.lat2, tt.lng2, tt.lat1, tt.lng1)
			if math.Abs(got-back) > 1e-9 {
				t.Errorf("distance not symmetric: %f vs %f", got, back)
			}
		})
	}
}

func TestClosestPointOnPolyline(t *testing.T) {
	line := []Point{
		{Lat: 40.70, Lng: -74.00},
		{Lat: 40.71, Lng: -74.00},
		{Lat: 40.72, Lng: -74.00},
	}

	t.Run("nearest vertex wins", func(t *testing.T) {
		_, idx, dist := ClosestPointOnPolyline(line, 40.719, -74.001)
		if idx != 2 {
			t.Errorf("expected index 2, got %d", idx)
		}
		if dist <= 0 {
			t.Errorf("expected positive distance, got %f", dist)
		}
	})

	t.Run("tie resolves to lowest index", func(t *testing.T) {
		// Equidistant from vertices 0 and 2.
		_, idx, _ := ClosestPointOnPolyline(line, 40.71, -74.00)
		if idx != 1 {
			t.Errorf("expected exact vertex 1, got %d", idx)
		}
		tie := []Point{{Lat: 40.0, Lng: -74.0}, {Lat: 40.0, Lng: -74.0}}
		_, idx, _ = ClosestPointOnPolyline(tie, 40.0, -74.0)
		if idx != 0 {
			t.Errorf("tie must resolve to first minimum, got index %d", idx)
		}
	})

	t.Run("empty polyline", func(t *testing.T) {
		_, idx, _ := ClosestPointOnPolyline(nil, 40.0, -74.0)
		if idx != -1 {
			t.Errorf("expected index -1 for empty polyline, got %d", idx)
		}
	})
}

func TestInterpolateAlongPolyline(t *testing.T) {
	line := []Point{
		{Lat: 40.00, Lng: -74.00},
		{Lat: 40.01, Lng: -74.00},
		{Lat: 40.02, Lng: -74.00},
	}

	tests := []struct {
		name       string
		start, end int
		progress   float64
		wantLat    float64
	}{
		{name: "at start", start: 0, end: 2, progress: 0, wantLat: 40.00},
		{name: "at end", start: 0, end: 2, progress: 1, wantLat: 40.02},
		{name: "midpoint", start: 0, end: 2, progress: 0.5, wantLat: 40.01},
		{name: "quarter", start: 0, end: 2, progress: 0.25, wantLat: 40.005},
		{name: "degenerate span", start: 1, end: 1, progress: 0.7, wantLat: 40.01},
		{name: "progress above one clamps", start: 0, end: 2, progress: 3, wantLat: 40.02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolateAlongPolyline(line, tt.start, tt.end, tt.progress)
			if math.Abs(got.Lat-tt.wantLat) > 1e-6 {
				t.Errorf("lat = %f, want %f", got.Lat, tt.wantLat)
			}
		})
	}

	t.Run("zero-length span returns start vertex", func(t *testing.T) {
		flat := []Point{{Lat: 40, Lng: -74}, {Lat: 40, Lng: -74}}
		got := InterpolateAlongPolyline(flat, 0, 1, 0.5)
		if got != flat[0] {
			t.Errorf("expected start vertex, got %+v", got)
		}
	})
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{name: "due north", lat1: 40, lng1: -74, lat2: 41, lng2: -74, want: 0},
		{name: "due east", lat1: 0, lng1: 0, lat2: 0, lng2: 1, want: 90},
		{name: "due south", lat1: 41, lng1: -74, lat2: 40, lng2: -74, want: 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > 0.5 {
				t.Errorf("Bearing() = %f, want %f", got, tt.want)
			}
		})
	}
}
