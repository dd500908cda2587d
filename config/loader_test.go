package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
}

func TestLoadAppConfigAppliesDefaults(t *testing.T) {
	writeConfig(t, `
server:
  port: 9000
transit:
  feeds:
    - family: subway
      urls:
        - https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs
`)
	if err := LoadAppConfig(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Config.Server.Port != 9000 {
		t.Errorf("port = %d", Config.Server.Port)
	}
	if Config.DataDir != "data" {
		t.Errorf("dataDir = %q, default not applied", Config.DataDir)
	}
	if Config.Hub.GracePeriodS != 300 {
		t.Errorf("gracePeriodS = %d, default not applied", Config.Hub.GracePeriodS)
	}
	if Config.Aircraft.IntervalS != 180 || Config.Rail.IntervalS != 60 || Config.Transit.IntervalS != 30 {
		t.Errorf("intervals = %d/%d/%d, defaults not applied",
			Config.Aircraft.IntervalS, Config.Rail.IntervalS, Config.Transit.IntervalS)
	}
	if len(Config.Transit.Feeds) != 1 || Config.Transit.Feeds[0].Family != "subway" {
		t.Errorf("feeds = %+v", Config.Transit.Feeds)
	}
}

func TestLoadAppConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		yml  string
	}{
		{"negative port", "server:\n  port: -1\n"},
		{"unknown family", "server:\n  port: 8080\ntransit:\n  feeds:\n    - family: tram\n      urls: [https://example.com/feed]\n"},
		{"feed without urls", "server:\n  port: 8080\ntransit:\n  feeds:\n    - family: subway\n      urls: []\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, tc.yml)
			if err := LoadAppConfig(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadAppConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7777\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadAppConfig(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if Config.Server.Port != 7777 {
		t.Errorf("port = %d, want 7777", Config.Server.Port)
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if err := LoadAppConfig(); err == nil {
		t.Fatal("expected error for missing config.yml")
	}
}

func TestMarineAPIKeyFromEnv(t *testing.T) {
	t.Setenv("AISSTREAM_API_KEY", "secret-key")
	if got := MarineAPIKey(); got != "secret-key" {
		t.Errorf("MarineAPIKey() = %q", got)
	}
	t.Setenv("AISSTREAM_API_KEY", "")
	if got := MarineAPIKey(); got != "" {
		t.Errorf("MarineAPIKey() with empty env = %q", got)
	}
}
