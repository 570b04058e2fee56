package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/avoronova/notekeeper/internal/flagx"
	"github.com/avoronova/notekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so JSON can specify intervals either as strings like
// "15m" or as integer nanoseconds.
type JsonConfig struct {
	Addr            string         `json:"addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl"`
	BackupBucket     string         `json:"backup_bucket"`
	BackupInterval   timex.Duration `json:"backup_interval"`
	BackupS3Region   string         `json:"backup_s3_region"`
	BackupS3Endpoint string         `json:"backup_s3_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file resolved
// via the -c/-config flags. Missing path means no JSON is loaded.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Addr != "" {
		cfg.Addr = jc.Addr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.AccessTokenTTL.Duration != 0 {
		cfg.AccessTokenTTL = time.Duration(jc.AccessTokenTTL.Duration)
	}
	if jc.RefreshTokenTTL.Duration != 0 {
		cfg.RefreshTokenTTL = time.Duration(jc.RefreshTokenTTL.Duration)
	}
	if jc.BackupBucket != "" {
		cfg.BackupBucket = jc.BackupBucket
	}
	if jc.BackupInterval.Duration != 0 {
		cfg.BackupInterval = time.Duration(jc.BackupInterval.Duration)
	}
	if jc.BackupS3Region != "" {
		cfg.BackupS3Region = jc.BackupS3Region
	}
	if jc.BackupS3Endpoint != "" {
		cfg.BackupS3Endpoint = jc.BackupS3Endpoint
	}
}
