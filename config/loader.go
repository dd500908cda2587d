package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

const (
	defaultPort         = 8080
	defaultDataDir      = "data"
	defaultGracePeriodS = 300

	defaultMarineStreamURL  = "wss://stream.aisstream.io/v0/stream"
	defaultAircraftURL      = "https://opensky-network.org/api/states/all"
	defaultRailURL          = "https://api-v3.amtraker.com/v3/trains"
	defaultFlightLookupURL  = "https://api.adsbdb.com/v0/callsign"
	defaultAircraftInterval = 180
	defaultRailInterval     = 60
	defaultTransitInterval  = 30
)

// LoadAppConfig loads and validates the application configuration.
// Explicit paths take precedence over the default config.yml locations.
// Values from a .env file are merged into the environment first; a missing
// .env is not an error.
func LoadAppConfig(explicit ...string) error {
	_ = godotenv.Load()

	paths := []string{"config.yml", "./config/config.yml"}
	if len(explicit) > 0 {
		paths = explicit
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return err
	}
	for _, f := range cfg.Transit.Feeds {
		if err := v.Struct(f); err != nil {
			return err
		}
	}
	applyDefaults(&cfg)
	Config = cfg
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.Hub.GracePeriodS == 0 {
		cfg.Hub.GracePeriodS = defaultGracePeriodS
	}
	if cfg.Marine.StreamURL == "" {
		cfg.Marine.StreamURL = defaultMarineStreamURL
	}
	if cfg.Aircraft.StatesURL == "" {
		cfg.Aircraft.StatesURL = defaultAircraftURL
	}
	if cfg.Aircraft.IntervalS == 0 {
		cfg.Aircraft.IntervalS = defaultAircraftInterval
	}
	if cfg.Rail.TrainsURL == "" {
		cfg.Rail.TrainsURL = defaultRailURL
	}
	if cfg.Rail.IntervalS == 0 {
		cfg.Rail.IntervalS = defaultRailInterval
	}
	if cfg.Transit.IntervalS == 0 {
		cfg.Transit.IntervalS = defaultTransitInterval
	}
	if cfg.Flights.LookupURL == "" {
		cfg.Flights.LookupURL = defaultFlightLookupURL
	}
}

// MarineAPIKey returns the AIS stream credential, empty when unset. The
// marine source is skipped entirely without it.
func MarineAPIKey() string {
	return os.Getenv("AISSTREAM_API_KEY")
}
