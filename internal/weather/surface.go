package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

// Added to the gust spread when the weather code reports a thunderstorm
const thunderstormVariabilityKt = 25

type surfaceResponse struct {
	Current struct {
		Time         string   `json:"time"`
		TemperatureC *float64 `json:"temperature_2m"`
		WindSpeedKt  *float64 `json:"wind_speed_10m"`
		WindGustsKt  *float64 `json:"wind_gusts_10m"`
		WeatherCode  *int     `json:"weather_code"`
	} `json:"current"`
}

// SurfaceProvider estimates turbulence from current surface wind, gusts and
// convective weather at each waypoint. It is available everywhere and is the
// last resort before the conservative default.
type SurfaceProvider struct {
	config    ProviderConfig
	heuristic turbulence.HeuristicThresholds
	client    *client
	logger    *logger.Logger
}

// NewSurfaceProvider creates a surface weather adapter
func NewSurfaceProvider(config ProviderConfig, heuristic turbulence.HeuristicThresholds, metrics *observability.Metrics, log *logger.Logger) *SurfaceProvider {
	providerLogger := log.Named("surface-provider")
	return &SurfaceProvider{
		config:    config,
		heuristic: heuristic,
		client:    newClient(SourceSurface, config.MaxRetries, metrics, providerLogger),
		logger:    providerLogger,
	}
}

func (p *SurfaceProvider) Name() string { return SourceSurface }

func (p *SurfaceProvider) FetchSamples(ctx context.Context, waypoints []geo.Waypoint, flightLevelFt int, timeout time.Duration) ([]turbulence.TurbulenceSample, error) {
	if len(waypoints) == 0 {
		return nil, nil
	}

	samples, err := sampleEach(ctx, SourceSurface, waypoints, p.config.MaxConcurrency, timeout,
		func(ctx context.Context, wp geo.Waypoint) (turbulence.TurbulenceSample, bool, error) {
			s, ok, err := p.fetchWaypoint(ctx, wp)
			var pe *ProviderError
			if errors.As(err, &pe) && errors.Is(pe.Kind, ErrNoCoverage) {
				// global model: a rejected request is an upstream fault
				err = newProviderError(SourceSurface, ErrUnavailable, pe.Err)
			}
			return s, ok, err
		})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Surface weather sampled",
		logger.Int("requested", len(waypoints)),
		logger.Int("sampled", len(samples)))
	return samples, nil
}

func (p *SurfaceProvider) fetchWaypoint(ctx context.Context, wp geo.Waypoint) (turbulence.TurbulenceSample, bool, error) {
	reqURL := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,wind_speed_10m,wind_gusts_10m,weather_code&wind_speed_unit=kn&timezone=UTC",
		p.config.BaseURL, wp.Lat, wp.Lon)

	var resp surfaceResponse
	found, err := p.client.getJSON(ctx, reqURL, &resp)
	if err != nil || !found {
		return turbulence.TurbulenceSample{}, false, err
	}

	cur := resp.Current
	if cur.WindSpeedKt == nil {
		return turbulence.TurbulenceSample{}, false, nil
	}

	variability := math.NaN()
	if cur.WindGustsKt != nil {
		variability = math.Max(0, *cur.WindGustsKt-*cur.WindSpeedKt)
	}
	if cur.WeatherCode != nil && isThunderstorm(*cur.WeatherCode) {
		if math.IsNaN(variability) {
			variability = 0
		}
		variability += thunderstormVariabilityKt
	}
	temp := math.NaN()
	if cur.TemperatureC != nil {
		temp = *cur.TemperatureC
	}

	sev, prob := p.heuristic.Evaluate(*cur.WindSpeedKt, variability, temp)
	return turbulence.NewSample(wp, sev, prob, SourceSurface, false), true, nil
}

// WMO weather codes 95-99 are thunderstorms
func isThunderstorm(code int) bool {
	return code >= 95 && code <= 99
}
