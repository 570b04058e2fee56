// Package config loads client settings from defaults, an optional JSON
// file and command-line flags, in that order of precedence.
package config

import "time"

// Config holds runtime settings for the notekeeper CLI.
type Config struct {
	// ServerBaseURL is the http(s) base of the sync server.
	ServerBaseURL string
	// SyncInterval is the cadence of the periodic sync pass.
	SyncInterval time.Duration
	// DatabasePath is the SQLite file backing the local store.
	// ":memory:" keeps everything in process for throwaway sessions.
	DatabasePath string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.SyncInterval = 30 * time.Second
	c.DatabasePath = "notekeeper.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
