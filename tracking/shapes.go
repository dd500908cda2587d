package tracking

import (
	"sort"
	"sync"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
	"github.com/theoremus-urban-solutions/livemap-hub/gtfsstatic"
)

// shapeEndpointToleranceMeters is how close a shape's first and last
// vertices must be to a trip's first and last scheduled stops for the shape
// to be considered that trip's path.
const shapeEndpointToleranceMeters = 500

// ShapeCache memoizes trip-to-shape resolution. Entries are never evicted;
// trip id cardinality is bounded by one realtime snapshot per feed family.
type ShapeCache struct {
	mu sync.Mutex
	m  map[string]string
}

func NewShapeCache() *ShapeCache {
	return &ShapeCache{m: map[string]string{}}
}

// ShapeForTrip returns the shape id to interpolate along for a trip, or ""
// when no shape can be determined. The static trip table wins; when it has
// no shape the endpoint-matching heuristic of FindShapeForTrip applies.
func (c *ShapeCache) ShapeForTrip(tripID string, schedule *gtfsstatic.ScheduleData) string {
	key := string(schedule.Family) + "|" + tripID
	c.mu.Lock()
	if shapeID, ok := c.m[key]; ok {
		c.mu.Unlock()
		return shapeID
	}
	c.mu.Unlock()

	shapeID := ""
	if trip, ok := schedule.Trips[gtfsstatic.NormalizeID(tripID)]; ok && trip.ShapeID != "" {
		if _, ok := schedule.Shapes[trip.ShapeID]; ok {
			shapeID = trip.ShapeID
		}
	}
	if shapeID == "" {
		shapeID = FindShapeForTrip(tripID, schedule)
	}

	c.mu.Lock()
	c.m[key] = shapeID
	c.mu.Unlock()
	return shapeID
}

// FindShapeForTrip scans every known shape and returns the first whose first
// and last vertices lie within 500 m of the trip's first and last scheduled
// stops, or "" when none qualifies. Shapes are visited in sorted id order so
// repeated calls agree on the winner. Callers should cache the result per
// trip id via ShapeCache.
func FindShapeForTrip(tripID string, schedule *gtfsstatic.ScheduleData) string {
	stopTimes := schedule.StopTimes[gtfsstatic.NormalizeID(tripID)]
	if len(stopTimes) < 2 {
		return ""
	}
	first, okFirst := schedule.Stops[stopTimes[0].StopID]
	last, okLast := schedule.Stops[stopTimes[len(stopTimes)-1].StopID]
	if !okFirst || !okLast {
		return ""
	}

	shapeIDs := make([]string, 0, len(schedule.Shapes))
	for id := range schedule.Shapes {
		shapeIDs = append(shapeIDs, id)
	}
	sort.Strings(shapeIDs)

	for _, id := range shapeIDs {
		polyline := schedule.Shapes[id]
		if len(polyline) < 2 {
			continue
		}
		head := polyline[0]
		tail := polyline[len(polyline)-1]
		if geo.DistanceMeters(head.Lat, head.Lng, first.Lat, first.Lng) <= shapeEndpointToleranceMeters &&
			geo.DistanceMeters(tail.Lat, tail.Lng, last.Lat, last.Lng) <= shapeEndpointToleranceMeters {
			return id
		}
	}
	return ""
}
