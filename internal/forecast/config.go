package forecast

import (
	"fmt"
	"time"

	"github.com/yegors/routewx/internal/turbulence"
)

// Config holds the orchestrator settings
type Config struct {
	WaypointCount         int                            `toml:"waypoint_count"`          // Points sampled along the route, endpoints included
	DefaultFlightLevelFt  int                            `toml:"default_flight_level_ft"` // Used when a request gives no flight level
	MaxFlightLevelFt      int                            `toml:"max_flight_level_ft"`     // Requests above this are rejected
	MaxConcurrency        int                            `toml:"max_concurrency"`         // Default per-waypoint parallelism for providers that don't set their own
	RequestTimeoutSeconds int                            `toml:"request_timeout_seconds"` // Bound on one whole route resolution
	DefaultProbability    int                            `toml:"default_probability"`     // Probability of the conservative default sample
	Heuristic             turbulence.HeuristicThresholds `toml:"heuristic"`
}

// DefaultConfig returns the standard orchestrator settings
func DefaultConfig() Config {
	return Config{
		WaypointCount:         15,
		DefaultFlightLevelFt:  35000,
		MaxFlightLevelFt:      60000,
		MaxConcurrency:        10,
		RequestTimeoutSeconds: 30,
		DefaultProbability:    25,
		Heuristic:             turbulence.DefaultHeuristic(),
	}
}

// RequestTimeout returns the whole-request bound as a duration
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate checks the orchestrator settings
func (c Config) Validate() error {
	if c.WaypointCount < 2 {
		return fmt.Errorf("waypoint_count must be at least 2, got %d", c.WaypointCount)
	}
	if c.DefaultFlightLevelFt <= 0 || c.DefaultFlightLevelFt > c.MaxFlightLevelFt {
		return fmt.Errorf("default_flight_level_ft must be in (0, %d], got %d", c.MaxFlightLevelFt, c.DefaultFlightLevelFt)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.DefaultProbability < 20 || c.DefaultProbability > 30 {
		return fmt.Errorf("default_probability must be between 20 and 30, got %d", c.DefaultProbability)
	}
	if err := c.Heuristic.Validate(); err != nil {
		return fmt.Errorf("heuristic: %w", err)
	}
	return nil
}
