package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/dmitrijs2005/attendkeeper/internal/lateness"
)

// Marker backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds runtime settings for the check-in CLI.
//
// Durations are time.Duration values; JSON accepts "30s" style strings or
// integer nanoseconds (see timex.Duration).
type Config struct {
	LedgerURL     string
	LedgerToken   string
	LedgerTimeout time.Duration
	// LedgerRPS caps requests per second to the ledger; 0 disables throttling.
	LedgerRPS   float64
	LedgerBurst int

	SiteLat          float64
	SiteLon          float64
	SiteRadiusMeters float64
	// SiteTimezone is an IANA zone name; it defines the calendar day.
	SiteTimezone string
	// Cutoff is the on-time limit as "HH:MM" in the site time zone.
	Cutoff string

	LocationTimeout time.Duration
	RefreshInterval time.Duration

	DatabasePath        string
	MarkerBackend       string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	MarkerRetentionDays int

	ReconcileRetries int
	ReconcileBackoff time.Duration

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LedgerURL = ""
	c.LedgerToken = ""
	c.LedgerTimeout = 15 * time.Second
	c.LedgerRPS = 2
	c.LedgerBurst = 4

	c.SiteLat = -6.2088
	c.SiteLon = 106.8456
	c.SiteRadiusMeters = 100
	c.SiteTimezone = "Asia/Jakarta"
	c.Cutoff = "07:30"

	c.LocationTimeout = 8 * time.Second
	c.RefreshInterval = 45 * time.Second

	c.DatabasePath = "checkin.db"
	c.MarkerBackend = BackendSQLite
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPassword = ""
	c.RedisDB = 0
	c.MarkerRetentionDays = 7

	c.ReconcileRetries = 5
	c.ReconcileBackoff = time.Second

	c.LogLevel = "info"
	c.LogFile = ""
	c.LogMaxSizeMB = 10
	c.LogMaxBackups = 3
	c.LogMaxAgeDays = 28
	c.LogCompress = false
}

// LoadConfig builds a Config from defaults, then overlays the JSON file at
// path when path is not empty. Flags are applied separately with ApplyFlags.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Location resolves SiteTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SiteTimezone)
	if err != nil {
		return nil, fmt.Errorf("site timezone %q: %w", c.SiteTimezone, err)
	}
	return loc, nil
}

// CutoffTime parses Cutoff.
func (c *Config) CutoffTime() (lateness.Cutoff, error) {
	return lateness.ParseCutoff(c.Cutoff)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SiteLat < -90 || c.SiteLat > 90 || c.SiteLon < -180 || c.SiteLon > 180 {
		errs = append(errs, fmt.Errorf("site coordinates out of bounds: %f,%f", c.SiteLat, c.SiteLon))
	}
	if c.SiteRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("site radius must be positive, got %v", c.SiteRadiusMeters))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CutoffTime(); err != nil {
		errs = append(errs, err)
	}
	switch c.MarkerBackend {
	case BackendSQLite, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown marker backend %q", c.MarkerBackend))
	}
	if c.LedgerRPS < 0 {
		errs = append(errs, fmt.Errorf("ledger rps must not be negative, got %v", c.LedgerRPS))
	}
	if c.MarkerRetentionDays < 1 {
		errs = append(errs, fmt.Errorf("marker retention must be at least one day, got %d", c.MarkerRetentionDays))
	}
	return errors.Join(errs...)
}

// MarkerTTL is the lifetime of a Redis marker. It spans the same days the
// SQLite backend keeps before purging: the marked day plus the retention window.
func (c *Config) MarkerTTL() time.Duration {
	return time.Duration(c.MarkerRetentionDays+1) * 24 * time.Hour
}

// RequireLedger reports an error when no ledger endpoint is configured.
func (c *Config) RequireLedger() error {
	if c.LedgerURL == "" {
		return errors.New("ledger url is not configured (set ledger_url or --ledger-url)")
	}
	return nil
}
