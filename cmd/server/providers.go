package main

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/routewx/internal/config"
	"github.com/yegors/routewx/internal/forecast"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/weather"
	"github.com/yegors/routewx/pkg/logger"
)

// buildSources returns the enabled providers in priority order: pilot
// reports, G-AIRMET advisories, GFS winds aloft, surface weather. Providers
// with a cache TTL are wrapped in a sample cache.
func buildSources(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, log *logger.Logger) []forecast.Source {
	p := cfg.Providers
	heuristic := cfg.Forecast.Heuristic

	var sources []forecast.Source
	add := func(provider weather.Provider, timeout, cacheTTL time.Duration) {
		if cacheTTL > 0 {
			provider = weather.NewCachedProvider(provider, cacheTTL, metrics, log)
		}
		sources = append(sources, forecast.Source{Provider: provider, Timeout: timeout})
	}

	if p.PIREP.Enabled {
		add(weather.NewPIREPProvider(p.PIREP, clock, metrics, log), p.PIREP.Timeout(), p.PIREP.CacheTTL())
	}
	if p.GAIRMET.Enabled {
		add(weather.NewGAIRMETProvider(p.GAIRMET, clock, metrics, log), p.GAIRMET.Timeout(), p.GAIRMET.CacheTTL())
	}
	if p.GFS.Enabled {
		add(weather.NewGFSProvider(p.GFS, heuristic, clock, metrics, log), p.GFS.Timeout(), p.GFS.CacheTTL())
	}
	if p.Surface.Enabled {
		add(weather.NewSurfaceProvider(p.Surface, heuristic, metrics, log), p.Surface.Timeout(), p.Surface.CacheTTL())
	}
	return sources
}
