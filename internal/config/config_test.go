package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "Asia/Jakarta", c.SiteTimezone)
	assert.Equal(t, "07:30", c.Cutoff)
	assert.Equal(t, 100.0, c.SiteRadiusMeters)
	assert.Equal(t, 8*time.Second, c.LocationTimeout)
	assert.Equal(t, 45*time.Second, c.RefreshInterval)
	assert.Equal(t, BackendSQLite, c.MarkerBackend)
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	var d Config
	d.LoadDefaults()
	assert.Equal(t, &d, cfg)
}

func TestLoadConfig_JSONOverlaysOnlyPresentKeys(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"ledger_url":       "https://ledger.example/exec",
		"refresh_interval": "30s",
		"ledger_timeout":   5000000000,
		"site_radius_m":    250,
		"marker_backend":   "redis",
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ledger.example/exec", cfg.LedgerURL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 5*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, 250.0, cfg.SiteRadiusMeters)
	assert.Equal(t, BackendRedis, cfg.MarkerBackend)

	// untouched
	assert.Equal(t, "07:30", cfg.Cutoff)
	assert.Equal(t, 8*time.Second, cfg.LocationTimeout)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
	_, err = LoadConfig(bad)
	require.Error(t, err)
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"cutoff":     "08:00",
		"ledger_url": "https://from-file/exec",
	})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-c", path, "--cutoff", "07:15", "--refresh-interval", "1m", "--redis-db", "3"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "07:15", cfg.Cutoff)
	assert.Equal(t, "https://from-file/exec", cfg.LedgerURL)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 3, cfg.RedisDB)
	// a flag left at its default does not override the file
	assert.Equal(t, 8*time.Second, cfg.LocationTimeout)
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	require.NoError(t, c.Validate())

	c.SiteTimezone = "Mars/Olympus"
	c.Cutoff = "25:99"
	c.MarkerBackend = "etcd"
	c.SiteRadiusMeters = 0
	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"Mars/Olympus", "25:99", "etcd", "radius"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRequireLedger(t *testing.T) {
	var c Config
	c.LoadDefaults()
	require.Error(t, c.RequireLedger())
	c.LedgerURL = "https://ledger.example/exec"
	require.NoError(t, c.RequireLedger())
}

func TestMarkerTTL_FollowsRetention(t *testing.T) {
	var c Config
	c.LoadDefaults()
	assert.Equal(t, 8*24*time.Hour, c.MarkerTTL())

	c.MarkerRetentionDays = 1
	assert.Equal(t, 48*time.Hour, c.MarkerTTL())
}
