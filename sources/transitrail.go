package sources

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
	"github.com/theoremus-urban-solutions/livemap-hub/gtfsstatic"
	"github.com/theoremus-urban-solutions/livemap-hub/tracking"
)

// DefaultTransitRailInterval is the poll cadence for the GTFS-realtime feeds.
const DefaultTransitRailInterval = 30 * time.Second

// FeedGroup names the realtime endpoints that share one static feed family.
// A family's schedule tables are loaded once and reused across its endpoints.
type FeedGroup struct {
	Family gtfsstatic.Family
	URLs   []string
}

// TrainPosition is one interpolated transit vehicle, recomputed every cycle.
type TrainPosition struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	TripID     string   `json:"tripId"`
	RouteID    string   `json:"routeId"`
	RouteColor string   `json:"routeColor,omitempty"`
	Direction  string   `json:"direction,omitempty"`
	NextStop   string   `json:"nextStop,omitempty"`
	LastStop   string   `json:"lastStop,omitempty"`
	Progress   *float64 `json:"progress,omitempty"`
	Heading    *float64 `json:"heading,omitempty"`
}

// TransitRailSource polls a set of GTFS-realtime trip-update feeds, resolves
// each trip against its family's static tables, interpolates vehicle
// positions along route shapes, and broadcasts one merged batch per cycle.
// All endpoints are fetched in parallel; a failed endpoint contributes
// nothing to that cycle.
type TransitRailSource struct {
	groups    []FeedGroup
	box       geo.BoundingBox
	interval  time.Duration
	store     *gtfsstatic.Store
	shapes    *tracking.ShapeCache
	broadcast BroadcastFunc
	metrics   Metrics

	client *http.Client
	now    func() time.Time

	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewTransitRailSource(groups []FeedGroup, box geo.BoundingBox, interval time.Duration, store *gtfsstatic.Store, broadcast BroadcastFunc, m Metrics) *TransitRailSource {
	if interval <= 0 {
		interval = DefaultTransitRailInterval
	}
	return &TransitRailSource{
		groups:    groups,
		box:       box,
		interval:  interval,
		store:     store,
		shapes:    tracking.NewShapeCache(),
		broadcast: broadcast,
		metrics:   m,
		client:    &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (s *TransitRailSource) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *TransitRailSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *TransitRailSource) run() {
	s.poll()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

func (s *TransitRailSource) poll() {
	nowSec := s.now().Unix()

	// Fetch every endpoint of every group in parallel; the merged batch is
	// broadcast only after all of them have resolved.
	feeds := make([][]*gtfsrtpb.FeedMessage, len(s.groups))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for gi, group := range s.groups {
		feeds[gi] = make([]*gtfsrtpb.FeedMessage, 0, len(group.URLs))
		for _, url := range group.URLs {
			wg.Add(1)
			go func(gi int, url string) {
				defer wg.Done()
				feed, err := s.fetchFeed(url)
				if err != nil {
					log.Printf("transitrail: fetch %s failed: %v", url, err)
					fetchError(s.metrics, "transitrail")
					return
				}
				fetchOK(s.metrics, "transitrail")
				mu.Lock()
				feeds[gi] = append(feeds[gi], feed)
				mu.Unlock()
			}(gi, url)
		}
	}
	wg.Wait()

	// An empty batch still goes out as [], never null.
	positions := make([]TrainPosition, 0)
	for gi, group := range s.groups {
		if len(feeds[gi]) == 0 {
			continue
		}
		schedule, err := s.store.Load(group.Family)
		if err != nil {
			log.Printf("transitrail: schedule %s unavailable: %v", group.Family, err)
			continue
		}
		for _, feed := range feeds[gi] {
			positions = append(positions, s.positionsFromFeed(feed, schedule, nowSec)...)
		}
	}

	select {
	case <-s.stopCh:
	default:
		s.broadcast(Message{Type: TypeTransitRail, Payload: positions})
	}
}

func (s *TransitRailSource) fetchFeed(url string) (*gtfsrtpb.FeedMessage, error) {
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	feed := &gtfsrtpb.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return feed, nil
}

func (s *TransitRailSource) positionsFromFeed(feed *gtfsrtpb.FeedMessage, schedule *gtfsstatic.ScheduleData, nowSec int64) []TrainPosition {
	// Bearings ride along in vehicle entities keyed by trip; the trip
	// updates themselves carry no heading.
	bearings := map[string]float64{}
	for _, e := range feed.Entity {
		if e.Vehicle != nil && e.Vehicle.Trip != nil && e.Vehicle.Trip.TripId != nil &&
			e.Vehicle.Position != nil && e.Vehicle.Position.Bearing != nil {
			bearings[*e.Vehicle.Trip.TripId] = float64(*e.Vehicle.Position.Bearing)
		}
	}

	var positions []TrainPosition
	for _, e := range feed.Entity {
		if e.TripUpdate == nil || e.TripUpdate.Trip == nil || e.TripUpdate.Trip.TripId == nil {
			continue
		}
		pos := s.positionFromTripUpdate(e.TripUpdate, schedule, nowSec)
		if pos == nil {
			continue
		}
		if !s.box.Contains(pos.Lat, pos.Lng) {
			continue
		}
		if b, ok := bearings[pos.TripID]; ok {
			heading := b
			pos.Heading = &heading
		}
		positions = append(positions, *pos)
	}
	return positions
}

func (s *TransitRailSource) positionFromTripUpdate(tu *gtfsrtpb.TripUpdate, schedule *gtfsstatic.ScheduleData, nowSec int64) *TrainPosition {
	tripID := *tu.Trip.TripId
	routeID := ""
	if tu.Trip.RouteId != nil {
		routeID = *tu.Trip.RouteId
	}
	route := tracking.ResolveRoute(routeID, tripID, schedule)
	if route == nil {
		return nil
	}

	stus := tu.StopTimeUpdate
	lastPassed, nextUpcoming := -1, -1
	for i, stu := range stus {
		t, ok := stopTimeUpdateTime(stu)
		if !ok {
			continue
		}
		if t <= nowSec {
			lastPassed = i
		} else {
			nextUpcoming = i
			break
		}
	}
	if lastPassed < 0 {
		return nil
	}

	lastT, _ := stopTimeUpdateTime(stus[lastPassed])
	lastStop, ok := stopForUpdate(stus[lastPassed], schedule)
	if !ok {
		return nil
	}

	pos := &TrainPosition{
		TripID:     tripID,
		RouteID:    route.DisplayRouteID,
		RouteColor: route.Color,
		Direction:  tripDirection(tripID, tu.Trip),
		LastStop:   lastStop.Name,
	}

	if nextUpcoming < 0 {
		// Past the final known stop; park the vehicle there.
		progress := 1.0
		pos.Lat = lastStop.Lat
		pos.Lng = lastStop.Lng
		pos.Progress = &progress
		return pos
	}

	nextT, _ := stopTimeUpdateTime(stus[nextUpcoming])
	nextStop, ok := stopForUpdate(stus[nextUpcoming], schedule)
	if !ok {
		return nil
	}

	shapeID := s.shapes.ShapeForTrip(tripID, schedule)
	interp := tracking.Interpolate(lastStop, nextStop, lastT, nextT, nowSec, schedule, shapeID)
	pos.Lat = interp.Lat
	pos.Lng = interp.Lng
	pos.Progress = &interp.Progress
	pos.NextStop = nextStop.Name
	// Travel-direction heading; overridden by an upstream vehicle bearing
	// when the feed carries one.
	heading := geo.Bearing(lastStop.Lat, lastStop.Lng, nextStop.Lat, nextStop.Lng)
	pos.Heading = &heading
	return pos
}

// stopTimeUpdateTime prefers the arrival prediction and falls back to the
// departure prediction.
func stopTimeUpdateTime(stu *gtfsrtpb.TripUpdate_StopTimeUpdate) (int64, bool) {
	if stu.Arrival != nil && stu.Arrival.Time != nil {
		return *stu.Arrival.Time, true
	}
	if stu.Departure != nil && stu.Departure.Time != nil {
		return *stu.Departure.Time, true
	}
	return 0, false
}

func stopForUpdate(stu *gtfsrtpb.TripUpdate_StopTimeUpdate, schedule *gtfsstatic.ScheduleData) (gtfsstatic.Stop, bool) {
	if stu.StopId == nil {
		return gtfsstatic.Stop{}, false
	}
	stop, ok := schedule.Stops[*stu.StopId]
	return stop, ok
}

// tripDirection reads the direction letter subway trip ids end with, falling
// back to the descriptor's numeric direction.
func tripDirection(tripID string, desc *gtfsrtpb.TripDescriptor) string {
	if n := len(tripID); n > 0 {
		switch tripID[n-1] {
		case 'N', 'S':
			return string(tripID[n-1])
		}
	}
	if desc != nil && desc.DirectionId != nil {
		return strconv.FormatUint(uint64(*desc.DirectionId), 10)
	}
	return ""
}
