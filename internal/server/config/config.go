// Package config loads server settings from defaults, an optional JSON
// file and command-line flags, in that order of precedence.
package config

import "time"

// Config holds runtime settings for the notekeeper server.
type Config struct {
	// Addr is the host:port the HTTP API listens on.
	Addr string
	// DatabaseDSN is the PostgreSQL connection string.
	DatabaseDSN string
	// SecretKey signs access tokens.
	SecretKey string
	// AccessTokenTTL and RefreshTokenTTL bound the token lifetimes.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// BackupBucket names the S3 bucket for periodic snapshots. Empty
	// disables backups.
	BackupBucket string
	// BackupInterval is the cadence of snapshot uploads.
	BackupInterval time.Duration
	// BackupS3Region and BackupS3Endpoint override the SDK defaults,
	// e.g. to point at a MinIO deployment.
	BackupS3Region   string
	BackupS3Endpoint string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Addr = "127.0.0.1:8080"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.AccessTokenTTL = 15 * time.Minute
	c.RefreshTokenTTL = 720 * time.Hour
	c.BackupBucket = ""
	c.BackupInterval = 6 * time.Hour
	c.BackupS3Region = "us-east-1"
	c.BackupS3Endpoint = ""
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
