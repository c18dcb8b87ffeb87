package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/attendkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It is
// pre-filled from the current Config so that absent keys keep their value.
type JsonConfig struct {
	LedgerURL     string         `json:"ledger_url"`
	LedgerToken   string         `json:"ledger_token"`
	LedgerTimeout timex.Duration `json:"ledger_timeout"`
	LedgerRPS     float64        `json:"ledger_rps"`
	LedgerBurst   int            `json:"ledger_burst"`

	SiteLat          float64 `json:"site_lat"`
	SiteLon          float64 `json:"site_lon"`
	SiteRadiusMeters float64 `json:"site_radius_m"`
	SiteTimezone     string  `json:"site_timezone"`
	Cutoff           string  `json:"cutoff"`

	LocationTimeout timex.Duration `json:"location_timeout"`
	RefreshInterval timex.Duration `json:"refresh_interval"`

	DatabasePath        string `json:"database_path"`
	MarkerBackend       string `json:"marker_backend"`
	RedisAddr           string `json:"redis_addr"`
	RedisPassword       string `json:"redis_password"`
	RedisDB             int    `json:"redis_db"`
	MarkerRetentionDays int    `json:"marker_retention_days"`

	ReconcileRetries int            `json:"reconcile_retries"`
	ReconcileBackoff timex.Duration `json:"reconcile_backoff"`

	LogLevel      string `json:"log_level"`
	LogFile       string `json:"log_file"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days"`
	LogCompress   bool   `json:"log_compress"`
}

func toJSON(c *Config) JsonConfig {
	return JsonConfig{
		LedgerURL:           c.LedgerURL,
		LedgerToken:         c.LedgerToken,
		LedgerTimeout:       timex.Duration{Duration: c.LedgerTimeout},
		LedgerRPS:           c.LedgerRPS,
		LedgerBurst:         c.LedgerBurst,
		SiteLat:             c.SiteLat,
		SiteLon:             c.SiteLon,
		SiteRadiusMeters:    c.SiteRadiusMeters,
		SiteTimezone:        c.SiteTimezone,
		Cutoff:              c.Cutoff,
		LocationTimeout:     timex.Duration{Duration: c.LocationTimeout},
		RefreshInterval:     timex.Duration{Duration: c.RefreshInterval},
		DatabasePath:        c.DatabasePath,
		MarkerBackend:       c.MarkerBackend,
		RedisAddr:           c.RedisAddr,
		RedisPassword:       c.RedisPassword,
		RedisDB:             c.RedisDB,
		MarkerRetentionDays: c.MarkerRetentionDays,
		ReconcileRetries:    c.ReconcileRetries,
		ReconcileBackoff:    timex.Duration{Duration: c.ReconcileBackoff},
		LogLevel:            c.LogLevel,
		LogFile:             c.LogFile,
		LogMaxSizeMB:        c.LogMaxSizeMB,
		LogMaxBackups:       c.LogMaxBackups,
		LogMaxAgeDays:       c.LogMaxAgeDays,
		LogCompress:         c.LogCompress,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.LedgerURL = jc.LedgerURL
	c.LedgerToken = jc.LedgerToken
	c.LedgerTimeout = jc.LedgerTimeout.Duration
	c.LedgerRPS = jc.LedgerRPS
	c.LedgerBurst = jc.LedgerBurst
	c.SiteLat = jc.SiteLat
	c.SiteLon = jc.SiteLon
	c.SiteRadiusMeters = jc.SiteRadiusMeters
	c.SiteTimezone = jc.SiteTimezone
	c.Cutoff = jc.Cutoff
	c.LocationTimeout = jc.LocationTimeout.Duration
	c.RefreshInterval = jc.RefreshInterval.Duration
	c.DatabasePath = jc.DatabasePath
	c.MarkerBackend = jc.MarkerBackend
	c.RedisAddr = jc.RedisAddr
	c.RedisPassword = jc.RedisPassword
	c.RedisDB = jc.RedisDB
	c.MarkerRetentionDays = jc.MarkerRetentionDays
	c.ReconcileRetries = jc.ReconcileRetries
	c.ReconcileBackoff = jc.ReconcileBackoff.Duration
	c.LogLevel = jc.LogLevel
	c.LogFile = jc.LogFile
	c.LogMaxSizeMB = jc.LogMaxSizeMB
	c.LogMaxBackups = jc.LogMaxBackups
	c.LogMaxAgeDays = jc.LogMaxAgeDays
	c.LogCompress = jc.LogCompress
}

// parseJSON overlays cfg with the values found in the JSON file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	jc := toJSON(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
