package config

import (
	"github.com/spf13/pflag"
)

// Flag names understood by RegisterFlags and ApplyFlags.
const (
	FlagConfig          = "config"
	FlagLedgerURL       = "ledger-url"
	FlagLedgerToken     = "ledger-token"
	FlagLedgerTimeout   = "ledger-timeout"
	FlagLedgerRPS       = "ledger-rps"
	FlagSiteLat         = "site-lat"
	FlagSiteLon         = "site-lon"
	FlagSiteRadius      = "site-radius"
	FlagSiteTimezone    = "site-timezone"
	FlagCutoff          = "cutoff"
	FlagLocationTimeout = "location-timeout"
	FlagRefresh         = "refresh-interval"
	FlagDatabase        = "db"
	FlagMarkerBackend   = "marker-backend"
	FlagRedisAddr       = "redis-addr"
	FlagRedisDB         = "redis-db"
	FlagLogLevel        = "log-level"
	FlagLogFile         = "log-file"
)

// RegisterFlags adds the configuration flags to fs, with the built-in
// defaults shown in help output.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to a JSON config file")
	fs.String(FlagLedgerURL, d.LedgerURL, "remote ledger endpoint URL")
	fs.String(FlagLedgerToken, d.LedgerToken, "bearer token for the remote ledger")
	fs.Duration(FlagLedgerTimeout, d.LedgerTimeout, "timeout of one ledger request")
	fs.Float64(FlagLedgerRPS, d.LedgerRPS, "max ledger requests per second (0 = unlimited)")
	fs.Float64(FlagSiteLat, d.SiteLat, "site latitude")
	fs.Float64(FlagSiteLon, d.SiteLon, "site longitude")
	fs.Float64(FlagSiteRadius, d.SiteRadiusMeters, "geofence radius in meters")
	fs.String(FlagSiteTimezone, d.SiteTimezone, "IANA time zone of the site")
	fs.String(FlagCutoff, d.Cutoff, "on-time cutoff (HH:MM, site time)")
	fs.Duration(FlagLocationTimeout, d.LocationTimeout, "how long to wait for a location fix")
	fs.Duration(FlagRefresh, d.RefreshInterval, "background refresh interval")
	fs.String(FlagDatabase, d.DatabasePath, "path of the local SQLite database")
	fs.String(FlagMarkerBackend, d.MarkerBackend, "idempotency marker store (sqlite|redis)")
	fs.String(FlagRedisAddr, d.RedisAddr, "redis address for the redis marker store")
	fs.Int(FlagRedisDB, d.RedisDB, "redis database number")
	fs.String(FlagLogLevel, d.LogLevel, "log level (debug|info|warn|error)")
	fs.String(FlagLogFile, d.LogFile, "write JSON logs to this rotating file instead of stderr")
}

// ApplyFlags overlays cfg with the flags of fs that were set explicitly.
// Flags missing from fs are ignored.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil {
			return
		}
		if f := fs.Lookup(name); f != nil && f.Changed {
			err = apply()
		}
	}

	set(FlagLedgerURL, func() (e error) { cfg.LedgerURL, e = fs.GetString(FlagLedgerURL); return })
	set(FlagLedgerToken, func() (e error) { cfg.LedgerToken, e = fs.GetString(FlagLedgerToken); return })
	set(FlagLedgerTimeout, func() (e error) { cfg.LedgerTimeout, e = fs.GetDuration(FlagLedgerTimeout); return })
	set(FlagLedgerRPS, func() (e error) { cfg.LedgerRPS, e = fs.GetFloat64(FlagLedgerRPS); return })
	set(FlagSiteLat, func() (e error) { cfg.SiteLat, e = fs.GetFloat64(FlagSiteLat); return })
	set(FlagSiteLon, func() (e error) { cfg.SiteLon, e = fs.GetFloat64(FlagSiteLon); return })
	set(FlagSiteRadius, func() (e error) { cfg.SiteRadiusMeters, e = fs.GetFloat64(FlagSiteRadius); return })
	set(FlagSiteTimezone, func() (e error) { cfg.SiteTimezone, e = fs.GetString(FlagSiteTimezone); return })
	set(FlagCutoff, func() (e error) { cfg.Cutoff, e = fs.GetString(FlagCutoff); return })
	set(FlagLocationTimeout, func() (e error) { cfg.LocationTimeout, e = fs.GetDuration(FlagLocationTimeout); return })
	set(FlagRefresh, func() (e error) { cfg.RefreshInterval, e = fs.GetDuration(FlagRefresh); return })
	set(FlagDatabase, func() (e error) { cfg.DatabasePath, e = fs.GetString(FlagDatabase); return })
	set(FlagMarkerBackend, func() (e error) { cfg.MarkerBackend, e = fs.GetString(FlagMarkerBackend); return })
	set(FlagRedisAddr, func() (e error) { cfg.RedisAddr, e = fs.GetString(FlagRedisAddr); return })
	set(FlagRedisDB, func() (e error) { cfg.RedisDB, e = fs.GetInt(FlagRedisDB); return })
	set(FlagLogLevel, func() (e error) { cfg.LogLevel, e = fs.GetString(FlagLogLevel); return })
	set(FlagLogFile, func() (e error) { cfg.LogFile, e = fs.GetString(FlagLogFile); return })

	return err
}

// Load is LoadConfig followed by ApplyFlags, reading the file path from the
// --config flag of fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyFlags(cfg, fs); err != nil {
		return nil, err
	}
	return cfg, nil
}
