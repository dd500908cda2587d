package tracking

import (
	"github.com/theoremus-urban-solutions/livemap-hub/geo"
	"github.com/theoremus-urban-solutions/livemap-hub/gtfsstatic"
)

// InterpolatedPosition is a manufactured position between two predicted
// stops. It is an approximation for visual continuity, not ground truth:
// the feeds publish discrete arrival predictions and the position is the
// time-proportional point between them.
type InterpolatedPosition struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Progress float64 `json:"progress"`
}

// Interpolate estimates the current position of a vehicle between lastStop
// (predicted time lastSec) and nextStop (predicted time nextSec) at nowSec.
// Current time is clamped into the window. A degenerate or overdue window
// (nextSec <= lastSec) reports the vehicle as arrived at nextStop. When
// shapeID names a known polyline the position follows it; otherwise the
// interpolation is a straight line between the stops.
func Interpolate(lastStop, nextStop gtfsstatic.Stop, lastSec, nextSec, nowSec int64, schedule *gtfsstatic.ScheduleData, shapeID string) *InterpolatedPosition {
	if nextSec <= lastSec {
		return &InterpolatedPosition{Lat: nextStop.Lat, Lng: nextStop.Lng, Progress: 1}
	}
	if nowSec < lastSec {
		nowSec = lastSec
	}
	if nowSec > nextSec {
		nowSec = nextSec
	}
	progress := float64(nowSec-lastSec) / float64(nextSec-lastSec)

	if shapeID != "" {
		if polyline, ok := schedule.Shapes[shapeID]; ok && len(polyline) > 1 {
			_, lastIdx, _ := geo.ClosestPointOnPolyline(polyline, lastStop.Lat, lastStop.Lng)
			_, nextIdx, _ := geo.ClosestPointOnPolyline(polyline, nextStop.Lat, nextStop.Lng)
			// Directionality comes from shape vertex order alone; a trip
			// running against the stored vertex order lands here swapped.
			if lastIdx > nextIdx {
				lastIdx, nextIdx = nextIdx, lastIdx
			}
			pt := geo.InterpolateAlongPolyline(polyline, lastIdx, nextIdx, progress)
			return &InterpolatedPosition{Lat: pt.Lat, Lng: pt.Lng, Progress: progress}
		}
	}

	return &InterpolatedPosition{
		Lat:      lastStop.Lat + progress*(nextStop.Lat-lastStop.Lat),
		Lng:      lastStop.Lng + progress*(nextStop.Lng-lastStop.Lng),
		Progress: progress,
	}
}
