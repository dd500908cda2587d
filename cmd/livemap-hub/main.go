package main

import (
	"flag"
	"log"

	lib "github.com/theoremus-urban-solutions/livemap-hub"
	"github.com/theoremus-urban-solutions/livemap-hub/config"
	"github.com/theoremus-urban-solutions/livemap-hub/flights"
	"github.com/theoremus-urban-solutions/livemap-hub/gtfsstatic"
	"github.com/theoremus-urban-solutions/livemap-hub/hub"
	"github.com/theoremus-urban-solutions/livemap-hub/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (defaults to ./config.yml)")
	flag.Parse()

	lib.InitLogging()
	var err error
	if *configPath != "" {
		err = config.LoadAppConfig(*configPath)
	} else {
		err = config.LoadAppConfig()
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	collector := metrics.NewCollector()
	store := gtfsstatic.NewStore(config.Config.DataDir, nil)
	registry := hub.NewRegistry(
		lib.NewSourceFactory(config.Config, store, collector),
		config.Config.GracePeriod(),
		collector,
	)
	flightSvc := flights.NewService(flights.HTTPLookup(config.Config.Flights.LookupURL), collector)

	lib.StartServer(registry, flightSvc, collector)
	lib.HandleGracefulShutdown(registry)
}
