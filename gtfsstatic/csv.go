package gtfsstatic

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/livemap-hub/geo"
)

// splitFields splits one delimited line into fields. A quote character
// toggles the in-quotes state; a comma inside quotes is not a field boundary.
// Quote characters themselves are not emitted.
func splitFields(line string) []string {
	fields := make([]string, 0, 8)
	var b strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, b.String())
	return fields
}

// tableReader streams a delimited table and resolves columns by header name.
type tableReader struct {
	cols    map[string]int
	scanner *bufio.Scanner
	row     []string
}

// newTableReader reads the header row and verifies that every required
// column is present. A missing required column is a fatal parse error.
func newTableReader(r io.Reader, table string, required ...string) (*tableReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !sc.Scan() {
		return nil, fmt.Errorf("%s: empty file", table)
	}
	header := splitFields(strings.TrimPrefix(strings.TrimRight(sc.Text(), "\r"), "\uFEFF"))
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("%s: required column %q not found in header", table, col)
		}
	}
	return &tableReader{cols: cols, scanner: sc}, nil
}

// next advances to the next data row. Rows shorter than the header's span of
// referenced columns are handled by field, in get.
func (t *tableReader) next() bool {
	for t.scanner.Scan() {
		line := strings.TrimRight(t.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		t.row = splitFields(line)
		return true
	}
	return false
}

// get returns the named column of the current row, or ok=false when the row
// is too short or the column is absent.
func (t *tableReader) get(col string) (string, bool) {
	idx, ok := t.cols[col]
	if !ok || idx >= len(t.row) {
		return "", false
	}
	return t.row[idx], true
}

func parseStops(r io.Reader) (map[string]Stop, error) {
	tr, err := newTableReader(r, "stops.txt", "stop_id", "stop_name", "stop_lat", "stop_lon")
	if err != nil {
		return nil, err
	}
	stops := map[string]Stop{}
	for tr.next() {
		id, _ := tr.get("stop_id")
		name, _ := tr.get("stop_name")
		latS, okLat := tr.get("stop_lat")
		lngS, okLng := tr.get("stop_lon")
		if id == "" || !okLat || !okLng {
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(latS), 64)
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
		if errLat != nil || errLng != nil {
			continue
		}
		stops[id] = Stop{ID: id, Name: name, Lat: lat, Lng: lng}
	}
	return stops, nil
}

func parseShapes(r io.Reader) (map[string][]geo.Point, error) {
	tr, err := newTableReader(r, "shapes.txt", "shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence")
	if err != nil {
		return nil, err
	}
	type seqPoint struct {
		pt  geo.Point
		seq int
	}
	tmp := map[string][]seqPoint{}
	for tr.next() {
		id, _ := tr.get("shape_id")
		latS, _ := tr.get("shape_pt_lat")
		lngS, _ := tr.get("shape_pt_lon")
		seqS, _ := tr.get("shape_pt_sequence")
		if id == "" {
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(latS), 64)
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
		seq, errSeq := strconv.Atoi(strings.TrimSpace(seqS))
		if errLat != nil || errLng != nil || errSeq != nil {
			continue
		}
		tmp[id] = append(tmp[id], seqPoint{pt: geo.Point{Lat: lat, Lng: lng}, seq: seq})
	}
	shapes := make(map[string][]geo.Point, len(tmp))
	for id, pts := range tmp {
		sort.Slice(pts, func(i, j int) bool { return pts[i].seq < pts[j].seq })
		line := make([]geo.Point, len(pts))
		for i, p := range pts {
			line[i] = p.pt
		}
		shapes[id] = line
	}
	return shapes, nil
}

func parseStopTimes(r io.Reader) (map[string][]StopTime, error) {
	tr, err := newTableReader(r, "stop_times.txt", "trip_id", "arrival_time", "departure_time", "stop_id", "stop_sequence")
	if err != nil {
		return nil, err
	}
	stopTimes := map[string][]StopTime{}
	for tr.next() {
		tripID, _ := tr.get("trip_id")
		arr, _ := tr.get("arrival_time")
		dep, _ := tr.get("departure_time")
		stopID, _ := tr.get("stop_id")
		seqS, _ := tr.get("stop_sequence")
		if tripID == "" || stopID == "" {
			continue
		}
		seq, errSeq := strconv.Atoi(strings.TrimSpace(seqS))
		if errSeq != nil {
			continue
		}
		tripID = NormalizeID(tripID)
		stopTimes[tripID] = append(stopTimes[tripID], StopTime{
			TripID:        tripID,
			ArrivalTime:   arr,
			DepartureTime: dep,
			StopID:        stopID,
			StopSequence:  seq,
		})
	}
	for tripID := range stopTimes {
		sts := stopTimes[tripID]
		sort.Slice(sts, func(i, j int) bool { return sts[i].StopSequence < sts[j].StopSequence })
		stopTimes[tripID] = sts
	}
	return stopTimes, nil
}

func parseTrips(r io.Reader) (map[string]Trip, error) {
	tr, err := newTableReader(r, "trips.txt", "trip_id", "route_id", "service_id")
	if err != nil {
		return nil, err
	}
	trips := map[string]Trip{}
	for tr.next() {
		tripID, _ := tr.get("trip_id")
		routeID, _ := tr.get("route_id")
		if tripID == "" {
			continue
		}
		headsign, _ := tr.get("trip_headsign")
		serviceID, _ := tr.get("service_id")
		shapeID, _ := tr.get("shape_id")
		dirS, _ := tr.get("direction_id")
		dir, _ := strconv.Atoi(strings.TrimSpace(dirS))
		tripID = NormalizeID(tripID)
		trips[tripID] = Trip{
			TripID:      tripID,
			RouteID:     NormalizeID(routeID),
			ServiceID:   serviceID,
			Headsign:    headsign,
			DirectionID: dir,
			ShapeID:     shapeID,
		}
	}
	return trips, nil
}

func parseRoutes(r io.Reader) (map[string]Route, error) {
	tr, err := newTableReader(r, "routes.txt", "route_id")
	if err != nil {
		return nil, err
	}
	routes := map[string]Route{}
	for tr.next() {
		id, _ := tr.get("route_id")
		if id == "" {
			continue
		}
		id = NormalizeID(id)
		agency, _ := tr.get("agency_id")
		short, _ := tr.get("route_short_name")
		long, _ := tr.get("route_long_name")
		desc, _ := tr.get("route_desc")
		url, _ := tr.get("route_url")
		color, _ := tr.get("route_color")
		textColor, _ := tr.get("route_text_color")
		typeS, _ := tr.get("route_type")
		sortS, _ := tr.get("route_sort_order")
		rtype, _ := strconv.Atoi(strings.TrimSpace(typeS))
		sortOrder, _ := strconv.Atoi(strings.TrimSpace(sortS))
		routes[id] = Route{
			ID:        id,
			AgencyID:  agency,
			ShortName: short,
			LongName:  long,
			Desc:      desc,
			Type:      rtype,
			URL:       url,
			Color:     strings.TrimSpace(color),
			TextColor: strings.TrimSpace(textColor),
			SortOrder: sortOrder,
		}
	}
	return routes, nil
}
