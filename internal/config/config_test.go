package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.toml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Empty(t, cfg.UnknownKeys())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Forecast.WaypointCount)
	assert.Equal(t, 25, cfg.Forecast.DefaultProbability)
	assert.Equal(t, float64(50), cfg.Forecast.Heuristic.WindHighKt)
	assert.Equal(t, 60.0, cfg.Providers.PIREP.MatchRadiusNM)
	assert.Equal(t, "https://api.open-meteo.com/v1/gfs", cfg.Providers.GFS.BaseURL)
	assert.True(t, cfg.Providers.Surface.Enabled)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090

[forecast]
max_concurrency = 12

[forecast.heuristic]
wind_high_kt = 55

[providers.gairmet]
enabled = false

[providers.gfs]
max_concurrency = 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, float64(55), cfg.Forecast.Heuristic.WindHighKt)
	assert.Equal(t, float64(30), cfg.Forecast.Heuristic.WindModerateKt)
	assert.False(t, cfg.Providers.GAIRMET.Enabled)
	assert.True(t, cfg.Providers.PIREP.Enabled)
	assert.Equal(t, 12, cfg.Providers.GFS.MaxConcurrency, "inherits the forecast cap")
	assert.Equal(t, 12, cfg.Providers.Surface.MaxConcurrency)
}

func TestLoad_ProviderConcurrencyOverridesForecast(t *testing.T) {
	path := writeConfig(t, `
[forecast]
max_concurrency = 12

[providers.surface]
max_concurrency = 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 12, cfg.Providers.GFS.MaxConcurrency)
	assert.Equal(t, 3, cfg.Providers.Surface.MaxConcurrency)

	example, err := Load(filepath.Join("..", "..", "configs", "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, example.Forecast.MaxConcurrency, example.Providers.GFS.MaxConcurrency)
	assert.Equal(t, example.Forecast.MaxConcurrency, example.Providers.Surface.MaxConcurrency)
}

func TestDefault_ProviderConcurrency(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.Forecast.MaxConcurrency, cfg.Providers.GFS.MaxConcurrency)
	assert.Equal(t, cfg.Forecast.MaxConcurrency, cfg.Providers.Surface.MaxConcurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
colour = "blue"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"server.colour"}, cfg.UnknownKeys())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "config file not found")

	_, err = Load(writeConfig(t, "[server\nport = "))
	assert.ErrorContains(t, err, "failed to decode config file")
}

func TestLoadWithFallback(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 7070\n")
	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = LoadWithFallback(filepath.Join(dir, "nope.toml"))
	assert.ErrorContains(t, err, "config file not found in any of the expected locations")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid logging level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "invalid logging format"},
		{"waypoints", func(c *Config) { c.Forecast.WaypointCount = 1 }, "waypoint_count"},
		{"default probability", func(c *Config) { c.Forecast.DefaultProbability = 40 }, "default_probability"},
		{"heuristic order", func(c *Config) { c.Forecast.Heuristic.WindJetKt = 40 }, "wind thresholds"},
		{"base url", func(c *Config) { c.Providers.GFS.BaseURL = "not a url" }, "providers.gfs.base_url"},
		{"timeout", func(c *Config) { c.Providers.PIREP.TimeoutSeconds = 0 }, "providers.pirep.timeout_seconds"},
		{"concurrency", func(c *Config) { c.Providers.Surface.MaxConcurrency = 100 }, "providers.surface.max_concurrency"},
		{"sample cache", func(c *Config) { c.Providers.GAIRMET.CacheTTLMinutes = -1 }, "providers.gairmet.cache_ttl_minutes"},
		{"sqlite path", func(c *Config) { c.Storage.SQLitePath = "" }, "sqlite_path"},
		{"cache size", func(c *Config) { c.Airports.CacheSize = 0 }, "cache_size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.errMsg)
		})
	}
}

func TestValidate_DisabledProviderNotChecked(t *testing.T) {
	cfg := Default()
	cfg.Providers.GAIRMET.Enabled = false
	cfg.Providers.GAIRMET.BaseURL = ""
	assert.NoError(t, cfg.Validate())
}
