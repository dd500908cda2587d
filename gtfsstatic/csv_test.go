package gtfsstatic

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "a,b,c",
			want: []string{"a", "b", "c"},
		},
		{
			name: "quoted field containing delimiter",
			line: `"A,B",C`,
			want: []string{"A,B", "C"},
		},
		{
			name: "quoted field in the middle",
			line: `1,"Times Sq, 42 St",40.75`,
			want: []string{"1", "Times Sq, 42 St", "40.75"},
		},
		{
			name: "empty fields",
			line: "a,,c,",
			want: []string{"a", "", "c", ""},
		},
		{
			name: "single field",
			line: "only",
			want: []string{"only"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitFields(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitFields(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"7"`, "7"},
		{`'SI'`, "SI"},
		{` 4 `, "4"},
		{`" A "`, "A"},
		{`plain`, "plain"},
		{`"`, `"`},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStops(t *testing.T) {
	t.Run("columns in any order", func(t *testing.T) {
		in := "stop_name,stop_lat,stop_id,stop_lon\nAstor Pl,40.730054,101,-73.991070\n"
		stops, err := parseStops(strings.NewReader(in))
		if err != nil {
			t.Fatalf("parseStops: %v", err)
		}
		stop, ok := stops["101"]
		if !ok {
			t.Fatal("stop 101 not parsed")
		}
		if stop.Name != "Astor Pl" || stop.Lat != 40.730054 || stop.Lng != -73.991070 {
			t.Errorf("unexpected stop: %+v", stop)
		}
	})

	t.Run("byte order mark stripped from header", func(t *testing.T) {
		in := "\uFEFFstop_id,stop_name,stop_lat,stop_lon\n101,Astor Pl,40.730054,-73.991070\n"
		stops, err := parseStops(strings.NewReader(in))
		if err != nil {
			t.Fatalf("parseStops: %v", err)
		}
		if _, ok := stops["101"]; !ok {
			t.Fatal("stop 101 not parsed from file with BOM")
		}
	})

	t.Run("missing required column is fatal", func(t *testing.T) {
		in := "stop_id,stop_name\n101,Astor Pl\n"
		if _, err := parseStops(strings.NewReader(in)); err == nil {
			t.Fatal("expected error for missing stop_lat column")
		}
	})

	t.Run("malformed rows skipped", func(t *testing.T) {
		in := "stop_id,stop_name,stop_lat,stop_lon\n" +
			"101,Astor Pl,40.730054,-73.991070\n" +
			"102,Broken,not-a-number,-73.99\n" +
			"103\n" +
			"104,South Ferry,40.702068,-74.013664\n"
		stops, err := parseStops(strings.NewReader(in))
		if err != nil {
			t.Fatalf("parseStops: %v", err)
		}
		if len(stops) != 2 {
			t.Errorf("expected 2 stops, got %d", len(stops))
		}
		if _, ok := stops["102"]; ok {
			t.Error("row with non-numeric lat must be skipped")
		}
	})
}

func TestParseShapesOrdersBySequence(t *testing.T) {
	in := "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
		"S1,40.72,-74.00,2\n" +
		"S1,40.70,-74.00,0\n" +
		"S1,40.71,-74.00,1\n"
	shapes, err := parseShapes(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseShapes: %v", err)
	}
	line := shapes["S1"]
	if len(line) != 3 {
		t.Fatalf("expected 3 points, got %d", len(line))
	}
	for i, want := range []float64{40.70, 40.71, 40.72} {
		if line[i].Lat != want {
			t.Errorf("point %d lat = %f, want %f", i, line[i].Lat, want)
		}
	}
}

func TestParseStopTimesGroupsAndSorts(t *testing.T) {
	in := "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"T1,10:02:00,10:02:30,B,2\n" +
		"T1,10:00:00,10:00:30,A,1\n" +
		"T2,11:00:00,11:00:00,A,1\n" +
		"T1,bad,row,C,notanint\n"
	stopTimes, err := parseStopTimes(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseStopTimes: %v", err)
	}
	t1 := stopTimes["T1"]
	if len(t1) != 2 {
		t.Fatalf("expected 2 stop times for T1, got %d", len(t1))
	}
	if t1[0].StopID != "A" || t1[1].StopID != "B" {
		t.Errorf("stop times not ordered by sequence: %+v", t1)
	}
	if len(stopTimes["T2"]) != 1 {
		t.Errorf("expected 1 stop time for T2")
	}
}

func TestParseRoutesNormalizesIDs(t *testing.T) {
	in := "route_id,route_short_name,route_long_name,route_color\n" +
		"\"7\",7,Flushing Local,B933AD\n"
	routes, err := parseRoutes(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseRoutes: %v", err)
	}
	route, ok := routes["7"]
	if !ok {
		t.Fatalf("quoted route_id not normalized, have keys %v", routes)
	}
	if route.Color != "B933AD" {
		t.Errorf("color = %q", route.Color)
	}
}
