package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yegors/routewx/internal/forecast"
	"github.com/yegors/routewx/internal/weather"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Forecast  forecast.Config `toml:"forecast"`  // Route sampling and fallback chain settings
	Providers ProvidersConfig `toml:"providers"` // Upstream weather sources, in priority order
	Storage   StorageConfig   `toml:"storage"`   // Data persistence settings
	Airports  AirportsConfig  `toml:"airports"`  // Airport directory lookup settings

	unknownKeys []string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port                int      `toml:"port"`                     // HTTP port for the server
	Host                string   `toml:"host"`                     // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins  []string `toml:"cors_allowed_origins"`     // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs     int      `toml:"read_timeout_seconds"`     // Maximum duration for reading the entire request
	WriteTimeoutSecs    int      `toml:"write_timeout_seconds"`    // Maximum duration for writing the response
	IdleTimeoutSecs     int      `toml:"idle_timeout_seconds"`     // Maximum duration to wait for the next request when keep-alives are enabled
	ShutdownTimeoutSecs int      `toml:"shutdown_timeout_seconds"` // Grace period for in-flight requests on shutdown
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// ProvidersConfig holds one section per upstream source
type ProvidersConfig struct {
	PIREP   weather.PIREPConfig    `toml:"pirep"`   // Pilot reports (real observations)
	GAIRMET weather.ProviderConfig `toml:"gairmet"` // Graphical AIRMET turbulence advisories (CONUS)
	GFS     weather.ProviderConfig `toml:"gfs"`     // GFS winds aloft model
	Surface weather.ProviderConfig `toml:"surface"` // Surface weather heuristic (global fallback)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLitePath      string `toml:"sqlite_path"`       // SQLite database holding the airport directory
	AirportsCSVPath string `toml:"airports_csv_path"` // OurAirports CSV imported at startup; empty skips the import
}

// AirportsConfig contains airport lookup cache settings
type AirportsConfig struct {
	CacheSize       int `toml:"cache_size"`        // Maximum airports held in memory
	CacheTTLMinutes int `toml:"cache_ttl_minutes"` // How long a cached lookup stays valid
}

// CacheTTL returns the cache entry lifetime as a duration
func (a AirportsConfig) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLMinutes) * time.Minute
}

// Default returns a configuration with every setting at its default value
func Default() *Config {
	c := builtinDefaults()
	c.ApplyDefaults()
	return c
}

// builtinDefaults leaves derived settings unset so a loaded file can still drive them
func builtinDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			Host:                "0.0.0.0",
			CORSAllowedOrigins:  []string{"*"},
			ReadTimeoutSecs:     15,
			WriteTimeoutSecs:    60,
			IdleTimeoutSecs:     120,
			ShutdownTimeoutSecs: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Forecast: forecast.DefaultConfig(),
		Providers: ProvidersConfig{
			PIREP:   weather.DefaultPIREPConfig(),
			GAIRMET: weather.DefaultGAIRMETConfig(),
			GFS:     weather.DefaultGFSConfig(),
			Surface: weather.DefaultSurfaceConfig(),
		},
		Storage: StorageConfig{
			SQLitePath:      "data/routewx.db",
			AirportsCSVPath: "assets/airports.csv",
		},
		Airports: AirportsConfig{
			CacheSize:       2048,
			CacheTTLMinutes: 60,
		},
	}
}

// Load loads the configuration from the specified file path. Settings absent
// from the file keep their default values.
func Load(path string) (*Config, error) {
	config := builtinDefaults()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file over the defaults
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	for _, key := range meta.Undecoded() {
		config.unknownKeys = append(config.unknownKeys, key.String())
	}

	config.ApplyDefaults()
	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// UnknownKeys lists keys present in the file that map to no setting
func (c *Config) UnknownKeys() []string {
	return c.unknownKeys
}

// ApplyDefaults fills settings that were explicitly zeroed or derive from
// other sections
func (c *Config) ApplyDefaults() {
	defaults := builtinDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if c.Server.ShutdownTimeoutSecs <= 0 {
		c.Server.ShutdownTimeoutSecs = defaults.Server.ShutdownTimeoutSecs
	}
	if c.Forecast.MaxFlightLevelFt == 0 {
		c.Forecast.MaxFlightLevelFt = defaults.Forecast.MaxFlightLevelFt
	}

	// per-waypoint providers inherit the forecast concurrency cap unless they
	// set their own
	for _, p := range []*weather.ProviderConfig{&c.Providers.GFS, &c.Providers.Surface} {
		if p.MaxConcurrency == 0 {
			p.MaxConcurrency = c.Forecast.MaxConcurrency
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (must be json or console)", c.Logging.Format)
	}

	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("invalid forecast config: %w", err)
	}

	if err := c.ValidateProviders(); err != nil {
		return err
	}

	// Validate storage and airport lookups
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required")
	}
	if c.Airports.CacheSize <= 0 {
		return fmt.Errorf("invalid airports.cache_size: %d (must be > 0)", c.Airports.CacheSize)
	}
	if c.Airports.CacheTTLMinutes <= 0 {
		return fmt.Errorf("invalid airports.cache_ttl_minutes: %d (must be > 0)", c.Airports.CacheTTLMinutes)
	}

	return nil
}

// ValidateProviders validates every enabled provider section
func (c *Config) ValidateProviders() error {
	pirep := c.Providers.PIREP
	if pirep.Enabled {
		if err := validateEndpoint("pirep", pirep.BaseURL, pirep.TimeoutSeconds, pirep.MaxRetries, pirep.CacheTTLMinutes); err != nil {
			return err
		}
		if pirep.HoursBack <= 0 {
			return fmt.Errorf("invalid providers.pirep.hours_back: %d (must be > 0)", pirep.HoursBack)
		}
		if pirep.MaxRadiusNM <= 0 || pirep.MatchRadiusNM <= 0 {
			return fmt.Errorf("providers.pirep radii must be positive")
		}
		if pirep.AltitudeBandFt <= 0 {
			return fmt.Errorf("invalid providers.pirep.altitude_band_ft: %d (must be > 0)", pirep.AltitudeBandFt)
		}
	}

	sections := []struct {
		name     string
		config   weather.ProviderConfig
		perPoint bool
	}{
		{"gairmet", c.Providers.GAIRMET, false},
		{"gfs", c.Providers.GFS, true},
		{"surface", c.Providers.Surface, true},
	}
	for _, s := range sections {
		if !s.config.Enabled {
			continue
		}
		if err := validateEndpoint(s.name, s.config.BaseURL, s.config.TimeoutSeconds, s.config.MaxRetries, s.config.CacheTTLMinutes); err != nil {
			return err
		}
		if s.perPoint && (s.config.MaxConcurrency < 1 || s.config.MaxConcurrency > 32) {
			return fmt.Errorf("invalid providers.%s.max_concurrency: %d (must be between 1 and 32)", s.name, s.config.MaxConcurrency)
		}
	}
	return nil
}

func validateEndpoint(name, baseURL string, timeoutSeconds, maxRetries, cacheTTLMinutes int) error {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid providers.%s.base_url: %q", name, baseURL)
	}
	if timeoutSeconds <= 0 {
		return fmt.Errorf("invalid providers.%s.timeout_seconds: %d (must be > 0)", name, timeoutSeconds)
	}
	if maxRetries < 0 {
		return fmt.Errorf("invalid providers.%s.max_retries: %d (must be >= 0)", name, maxRetries)
	}
	if cacheTTLMinutes < 0 {
		return fmt.Errorf("invalid providers.%s.cache_ttl_minutes: %d (must be >= 0)", name, cacheTTLMinutes)
	}
	return nil
}
