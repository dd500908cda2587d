// Package gtfsstatic loads and indexes the static schedule reference tables
// (stops, shapes, stop_times, trips, routes) for one feed family. Data is
// read from plain delimited text files on disk, downloading and extracting
// the publisher's archive when the files are absent. Loads are cached for
// the process lifetime and deduplicated while in flight.
package gtfsstatic

import (
	"strings"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
)

// Family identifies one static feed family.
type Family string

const (
	FamilySubway Family = "subway"
	FamilyLIRR   Family = "lirr"
	FamilyMNR    Family = "mnr"
)

// Stop is one row of stops.txt.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lng  float64
}

// StopTime is one row of stop_times.txt, grouped per trip and sorted by
// StopSequence.
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// Trip is one row of trips.txt.
type Trip struct {
	TripID      string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID int
	ShapeID     string
}

// Route is one row of routes.txt.
type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Desc      string
	Type      int
	URL       string
	Color     string
	TextColor string
	SortOrder int
}

// ScheduleData bundles the parsed tables of one feed family.
type ScheduleData struct {
	Family    Family
	Stops     map[string]Stop        // stop_id -> stop
	Shapes    map[string][]geo.Point // shape_id -> polyline ordered by sequence
	StopTimes map[string][]StopTime  // trip_id -> stop times ordered by stop_sequence
	Trips     map[string]Trip        // trip_id -> trip
	Routes    map[string]Route       // route_id -> route
}

// NormalizeID trims surrounding whitespace and unwraps one layer of single or
// double quotes. Feed publishers encode route and trip ids inconsistently;
// normalizing both sides makes the realtime-to-static joins line up.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 {
		if (id[0] == '"' && id[len(id)-1] == '"') || (id[0] == '\'' && id[len(id)-1] == '\'') {
			id = id[1 : len(id)-1]
		}
	}
	return strings.TrimSpace(id)
}
