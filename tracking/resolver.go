package tracking

import (
	"regexp"
	"strings"

	"github.com/theoremus-urban-solutions/livemap-hub/gtfsstatic"
)

// ResolvedRoute is the displayable identity of a route.
type ResolvedRoute struct {
	DisplayRouteID string `json:"routeId"`
	Color          string `json:"routeColor,omitempty"`
}

// Trip id encodings seen in malformed or incomplete feeds. The subway style
// embeds the route between an underscore and "..", the commuter style wedges
// a short code between hyphens after a prefix.
var (
	suffixCodePattern = regexp.MustCompile(`_([0-9A-Za-z]{1,3})\.\.`)
	infixCodePattern  = regexp.MustCompile(`^[0-9A-Za-z]+-([0-9A-Za-z]{1,3})-`)
)

// ResolveRoute resolves a human-displayable route identity for a trip.
// Resolution order: the realtime descriptor's routeId, then the static trip
// table, then pattern heuristics against the trip id itself. A candidate
// that is not present in the static route table yields nil and the caller
// must drop the vehicle.
func ResolveRoute(descriptorRouteID, tripID string, schedule *gtfsstatic.ScheduleData) *ResolvedRoute {
	candidate := gtfsstatic.NormalizeID(descriptorRouteID)
	if candidate == "" {
		if trip, ok := schedule.Trips[gtfsstatic.NormalizeID(tripID)]; ok {
			candidate = trip.RouteID
		}
	}
	if candidate == "" {
		if m := suffixCodePattern.FindStringSubmatch(tripID); m != nil {
			candidate = m[1]
		} else if m := infixCodePattern.FindStringSubmatch(tripID); m != nil {
			candidate = m[1]
		}
	}
	if candidate == "" {
		return nil
	}

	candidate = gtfsstatic.NormalizeID(candidate)
	route, ok := schedule.Routes[candidate]
	if !ok {
		return nil
	}

	display := route.ShortName
	if display == "" {
		display = route.LongName
	}
	if display == "" {
		display = candidate
	}
	resolved := &ResolvedRoute{DisplayRouteID: display}
	if route.Color != "" {
		color := route.Color
		if !strings.HasPrefix(color, "#") {
			color = "#" + color
		}
		resolved.Color = color
	}
	return resolved
}
