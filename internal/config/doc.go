// Package config loads runtime configuration for the check-in CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config/-c.
//  3. Command-line flags that were set explicitly (see ApplyFlags).
//
// # JSON schema
//
// Keys absent from the file keep their previous value. Durations use
// timex.Duration:
//
//	{
//	  "ledger_url": "https://script.google.com/macros/s/XYZ/exec",
//	  "ledger_timeout": "15s",
//	  "site_lat": -6.2088,
//	  "site_lon": 106.8456,
//	  "site_radius_m": 100,
//	  "site_timezone": "Asia/Jakarta",
//	  "cutoff": "07:30",
//	  "refresh_interval": "45s",
//	  "marker_backend": "sqlite",
//	  "database_path": "checkin.db"
//	}
//
// The package does not read environment variables.
package config
