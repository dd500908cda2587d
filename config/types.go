package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// HubConfig tunes broker lifecycle behavior
type HubConfig struct {
	GracePeriodS int `yaml:"gracePeriodS" validate:"gte=0"`
}

// MarineConfig contains the AIS stream configuration. The stream's API key
// comes from the AISSTREAM_API_KEY environment variable, never from the
// file; without the key the marine source is disabled.
type MarineConfig struct {
	StreamURL string `yaml:"streamURL" validate:"omitempty,url"`
}

// AircraftConfig contains the aircraft state-vector poller configuration
type AircraftConfig struct {
	StatesURL string `yaml:"statesURL" validate:"omitempty,url"`
	IntervalS int    `yaml:"intervalS" validate:"gte=0"`
}

// RailConfig contains the intercity rail poller configuration
type RailConfig struct {
	TrainsURL string `yaml:"trainsURL" validate:"omitempty,url"`
	IntervalS int    `yaml:"intervalS" validate:"gte=0"`
}

// TransitFeed names the realtime endpoints of one static feed family
type TransitFeed struct {
	Family string   `yaml:"family" validate:"required,oneof=subway lirr mnr"`
	URLs   []string `yaml:"urls" validate:"required,min=1,dive,url"`
}

// TransitConfig contains the GTFS-realtime poller configuration
type TransitConfig struct {
	IntervalS int           `yaml:"intervalS" validate:"gte=0"`
	Feeds     []TransitFeed `yaml:"feeds"`
}

// FlightsConfig contains the callsign lookup side-channel configuration
type FlightsConfig struct {
	LookupURL string `yaml:"lookupURL" validate:"omitempty,url"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	DataDir  string         `yaml:"dataDir"`
	Hub      HubConfig      `yaml:"hub"`
	Marine   MarineConfig   `yaml:"marine"`
	Aircraft AircraftConfig `yaml:"aircraft"`
	Rail     RailConfig     `yaml:"rail"`
	Transit  TransitConfig  `yaml:"transit"`
	Flights  FlightsConfig  `yaml:"flights"`
}

func (c AppConfig) GracePeriod() time.Duration {
	return time.Duration(c.Hub.GracePeriodS) * time.Second
}

func (c AircraftConfig) Interval() time.Duration {
	return time.Duration(c.IntervalS) * time.Second
}

func (c RailConfig) Interval() time.Duration {
	return time.Duration(c.IntervalS) * time.Second
}

func (c TransitConfig) Interval() time.Duration {
	return time.Duration(c.IntervalS) * time.Second
}
