package weather

import (
	"context"
	"time"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/turbulence"
)

// Provider source identifiers, in default priority order
const (
	SourcePIREP   = "aviationweather-pirep"
	SourceGAIRMET = "aviationweather-gairmet"
	SourceGFS     = "open-meteo-gfs"
	SourceSurface = "open-meteo-surface"
)

// Provider estimates turbulence for a set of waypoints at one flight level.
// Samples are returned only for waypoints the provider has data for; an empty
// result with a nil error means the provider had nothing to say.
type Provider interface {
	Name() string
	FetchSamples(ctx context.Context, waypoints []geo.Waypoint, flightLevelFt int, timeout time.Duration) ([]turbulence.TurbulenceSample, error)
}

// ProviderConfig holds the settings shared by every adapter
type ProviderConfig struct {
	Enabled         bool   `toml:"enabled"`           // Whether the provider is consulted
	BaseURL         string `toml:"base_url"`          // API endpoint
	TimeoutSeconds  int    `toml:"timeout_seconds"`   // Per-call timeout
	MaxRetries      int    `toml:"max_retries"`       // Retries on transient failures within the timeout
	MaxConcurrency  int    `toml:"max_concurrency"`   // Parallel per-waypoint requests (per-waypoint providers only); 0 inherits forecast.max_concurrency
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"` // How long samples are reused; 0 disables the cache
}

// Timeout returns the per-call timeout as a duration
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the sample cache lifetime as a duration
func (c ProviderConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// PIREPConfig holds the pilot report adapter settings
type PIREPConfig struct {
	Enabled         bool    `toml:"enabled"`
	BaseURL         string  `toml:"base_url"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	MaxRetries      int     `toml:"max_retries"`
	HoursBack       int     `toml:"hours_back"`        // Report age window
	MaxRadiusNM     float64 `toml:"max_radius_nm"`     // Upper bound on the search radius around the route midpoint
	AltitudeBandFt  int     `toml:"altitude_band_ft"`  // Reports further than this from the flight level are ignored
	MatchRadiusNM   float64 `toml:"match_radius_nm"`   // Reports further than this from every waypoint are ignored
	CacheTTLMinutes int     `toml:"cache_ttl_minutes"` // How long samples are reused; 0 disables the cache
}

// Timeout returns the per-call timeout as a duration
func (c PIREPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the sample cache lifetime as a duration
func (c PIREPConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// DefaultPIREPConfig returns the default pilot report settings
func DefaultPIREPConfig() PIREPConfig {
	return PIREPConfig{
		Enabled:         true,
		BaseURL:         "https://aviationweather.gov/api/data",
		TimeoutSeconds:  8,
		MaxRetries:      1,
		HoursBack:       3,
		MaxRadiusNM:     200,
		AltitudeBandFt:  5000,
		MatchRadiusNM:   60,
		CacheTTLMinutes: 5,
	}
}

// DefaultGAIRMETConfig returns the default G-AIRMET settings
func DefaultGAIRMETConfig() ProviderConfig {
	return ProviderConfig{
		Enabled:         true,
		BaseURL:         "https://aviationweather.gov/api/data",
		TimeoutSeconds:  8,
		MaxRetries:      1,
		CacheTTLMinutes: 10,
	}
}

// DefaultGFSConfig returns the default GFS winds aloft settings
func DefaultGFSConfig() ProviderConfig {
	return ProviderConfig{
		Enabled:         true,
		BaseURL:         "https://api.open-meteo.com/v1/gfs",
		TimeoutSeconds:  8,
		MaxRetries:      1,
		CacheTTLMinutes: 30,
	}
}

// DefaultSurfaceConfig returns the default surface weather settings
func DefaultSurfaceConfig() ProviderConfig {
	return ProviderConfig{
		Enabled:         true,
		BaseURL:         "https://api.open-meteo.com/v1/forecast",
		TimeoutSeconds:  6,
		MaxRetries:      1,
		CacheTTLMinutes: 15,
	}
}
