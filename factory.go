// Package livemaphub wires the region-broker hub, the upstream position
// sources, and the client-facing HTTP surface into one service.
package livemaphub

import (
	"log"

	"github.com/theoremus-urban-solutions/livemap-hub/config"
	"github.com/theoremus-urban-solutions/livemap-hub/geo"
	"github.com/theoremus-urban-solutions/livemap-hub/gtfsstatic"
	"github.com/theoremus-urban-solutions/livemap-hub/hub"
	"github.com/theoremus-urban-solutions/livemap-hub/metrics"
	"github.com/theoremus-urban-solutions/livemap-hub/sources"
)

// NewSourceFactory builds the per-region source set from configuration.
// Every broker gets its own source instances scoped to its bounding box;
// the static schedule store is shared across all of them.
func NewSourceFactory(cfg config.AppConfig, store *gtfsstatic.Store, collector *metrics.Collector) hub.SourceFactory {
	marineKey := config.MarineAPIKey()
	if marineKey == "" {
		log.Printf("AISSTREAM_API_KEY not set, marine source disabled")
	}

	return func(box geo.BoundingBox, broadcast sources.BroadcastFunc) []sources.Source {
		out := []sources.Source{
			sources.NewAircraftSource(cfg.Aircraft.StatesURL, box, cfg.Aircraft.Interval(), broadcast, collector),
			sources.NewRailSource(cfg.Rail.TrainsURL, box, cfg.Rail.Interval(), broadcast, collector),
		}
		if marineKey != "" {
			out = append(out, sources.NewMarineSource(cfg.Marine.StreamURL, marineKey, box, broadcast, collector))
		}
		if len(cfg.Transit.Feeds) > 0 {
			groups := make([]sources.FeedGroup, 0, len(cfg.Transit.Feeds))
			for _, feed := range cfg.Transit.Feeds {
				groups = append(groups, sources.FeedGroup{
					Family: gtfsstatic.Family(feed.Family),
					URLs:   feed.URLs,
				})
			}
			out = append(out, sources.NewTransitRailSource(groups, box, cfg.Transit.Interval(), store, broadcast, collector))
		}
		return out
	}
}
