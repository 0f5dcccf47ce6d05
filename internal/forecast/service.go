package forecast

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/routewx/internal/aircraft"
	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/physics"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/internal/weather"
	"github.com/yegors/routewx/pkg/logger"
)

// Source is one entry of the fallback chain
type Source struct {
	Provider weather.Provider
	Timeout  time.Duration // bound on a single FetchSamples call
}

// Request describes one route forecast
type Request struct {
	Origin        geo.Coordinate
	Destination   geo.Coordinate
	FlightLevelFt int    // 0 selects the aircraft's typical cruise altitude, else the configured default
	AircraftType  string // optional ICAO type designator
}

// Service resolves route forecasts by walking the provider fallback chain.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	config  Config
	sources []Source
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewService creates a forecast service. Sources are consulted in the order given.
func NewService(config Config, sources []Source, clock clockwork.Clock, metrics *observability.Metrics, log *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	chain := make([]Source, len(sources))
	copy(chain, sources)

	return &Service{
		config:  config,
		sources: chain,
		clock:   clock,
		metrics: metrics,
		logger:  log.Named("forecast-service"),
	}
}

// Sources returns the provider names in priority order
func (s *Service) Sources() []string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Provider.Name()
	}
	return names
}

// ResolveRouteForecast forecasts turbulence from origin to destination at the
// given flight level
func (s *Service) ResolveRouteForecast(ctx context.Context, origin, destination geo.Coordinate, flightLevelFt int) (turbulence.RouteForecast, error) {
	return s.GetRouteForecast(ctx, Request{Origin: origin, Destination: destination, FlightLevelFt: flightLevelFt})
}

// GetRouteForecast resolves a complete forecast for the request. Provider
// failures are absorbed; the only error returned is *geo.InvalidRouteError.
func (s *Service) GetRouteForecast(ctx context.Context, req Request) (turbulence.RouteForecast, error) {
	start := time.Now()

	flightLevelFt := req.FlightLevelFt
	if flightLevelFt == 0 {
		flightLevelFt = s.config.DefaultFlightLevelFt
		// the type's usual cruise altitude beats the generic default
		if t, ok := aircraft.Lookup(req.AircraftType); ok && t.TypicalCruiseAltFt > 0 {
			flightLevelFt = t.TypicalCruiseAltFt
		}
	}
	if reason := s.checkFlightLevel(flightLevelFt); reason != "" {
		s.metrics.ForecastsTotal.WithLabelValues("invalid_route").Inc()
		return turbulence.RouteForecast{}, &geo.InvalidRouteError{Reason: reason}
	}

	waypoints, err := geo.GenerateWaypoints(req.Origin, req.Destination, s.config.WaypointCount-1)
	if err != nil {
		s.metrics.ForecastsTotal.WithLabelValues("invalid_route").Inc()
		return turbulence.RouteForecast{}, err
	}

	if timeout := s.config.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resolved := map[int]turbulence.TurbulenceSample{}
	pending := waypoints
	for _, src := range s.sources {
		if len(pending) == 0 {
			break
		}
		if ctx.Err() != nil {
			s.logger.Warn("Request deadline reached, skipping remaining providers",
				logger.String("next_provider", src.Provider.Name()),
				logger.Int("pending_waypoints", len(pending)))
			break
		}
		samples := s.consult(ctx, src, pending, flightLevelFt)
		before := len(pending)
		resolved, pending = merge(resolved, pending, samples)
		if filled := before - len(pending); filled > 0 {
			s.metrics.ProviderSamples.WithLabelValues(src.Provider.Name()).Add(float64(filled))
		}
	}

	for _, wp := range pending {
		resolved[wp.Index] = turbulence.DefaultSample(wp, s.config.DefaultProbability)
	}
	if len(pending) > 0 {
		s.metrics.DefaultSamples.Add(float64(len(pending)))
	}

	samples := ordered(resolved)
	generatedAt := s.clock.Now().UTC()
	forecast := turbulence.NewRouteForecast(samples, s.providerUsed(samples), flightLevelFt, generatedAt)
	forecast.Segments = turbulence.WithMagneticCourse(forecast.Segments, func(c geo.Coordinate) float64 {
		return physics.CalculateMagneticVariation(c.Lat, c.Lon, float64(flightLevelFt), generatedAt)
	})

	if req.AircraftType != "" {
		forecast = aircraft.AdjustForAircraft(forecast, req.AircraftType)
	}

	s.metrics.ForecastsTotal.WithLabelValues("success").Inc()
	s.metrics.ForecastDuration.Observe(time.Since(start).Seconds())
	s.metrics.RealObservations.Add(float64(forecast.RealDataCount))

	s.logger.Info("Route forecast resolved",
		logger.String("origin", req.Origin.String()),
		logger.String("destination", req.Destination.String()),
		logger.Int("flight_level_ft", flightLevelFt),
		logger.String("provider_used", forecast.ProviderUsed),
		logger.Int("real_data_count", forecast.RealDataCount),
		logger.Int("default_samples", len(pending)),
		logger.String("overall_max_severity", forecast.OverallMaxSeverity.String()),
		logger.Duration("duration", time.Since(start)))

	return forecast, nil
}

// checkFlightLevel describes why a resolved flight level is unusable, or
// returns "" when it is fine
func (s *Service) checkFlightLevel(flightLevelFt int) string {
	ceiling := s.config.MaxFlightLevelFt
	switch {
	case ceiling > 0 && (flightLevelFt < 0 || flightLevelFt > ceiling):
		return fmt.Sprintf("flight level %d ft out of range [0, %d] (0 selects the default)", flightLevelFt, ceiling)
	case flightLevelFt < 0:
		return fmt.Sprintf("flight level %d ft must not be negative (0 selects the default)", flightLevelFt)
	}
	return ""
}

// consult calls one provider for the pending waypoints and returns whatever
// usable samples it produced. Errors are logged and counted, never returned.
func (s *Service) consult(ctx context.Context, src Source, pending []geo.Waypoint, flightLevelFt int) []turbulence.TurbulenceSample {
	name := src.Provider.Name()
	start := time.Now()

	samples, err := src.Provider.FetchSamples(ctx, pending, flightLevelFt, src.Timeout)
	s.metrics.ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	outcome := weather.KindLabel(err)
	if err == nil && len(samples) == 0 {
		outcome = "empty"
	}
	s.metrics.ProviderRequests.WithLabelValues(name, outcome).Inc()

	switch outcome {
	case "success":
		s.logger.Debug("Provider returned samples",
			logger.String("provider", name),
			logger.Int("samples", len(samples)),
			logger.Int("pending", len(pending)))
	case "empty", "no_coverage":
		s.logger.Debug("Provider had no data for route",
			logger.String("provider", name),
			logger.String("outcome", outcome))
	default:
		s.logger.Warn("Provider failed, falling back",
			logger.String("provider", name),
			logger.Error(err))
	}

	if err != nil {
		return nil
	}
	for i := range samples {
		if samples[i].SourceID == "" {
			samples[i].SourceID = name
		}
	}
	return samples
}

// merge fills pending waypoints from samples and returns the new resolved set
// and the waypoints still pending. Inputs are not modified; waypoints already
// resolved are never overwritten and samples for waypoints that were not asked
// for are ignored.
func merge(resolved map[int]turbulence.TurbulenceSample, pending []geo.Waypoint, samples []turbulence.TurbulenceSample) (map[int]turbulence.TurbulenceSample, []geo.Waypoint) {
	next := make(map[int]turbulence.TurbulenceSample, len(resolved)+len(samples))
	for idx, s := range resolved {
		next[idx] = s
	}

	byIndex := make(map[int]turbulence.TurbulenceSample, len(samples))
	for _, smp := range samples {
		if _, dup := byIndex[smp.Waypoint.Index]; !dup {
			byIndex[smp.Waypoint.Index] = smp
		}
	}

	remaining := make([]geo.Waypoint, 0, len(pending))
	for _, wp := range pending {
		if _, done := next[wp.Index]; done {
			continue
		}
		smp, ok := byIndex[wp.Index]
		if !ok {
			remaining = append(remaining, wp)
			continue
		}
		// route geometry stays authoritative; values are re-clamped
		clean := turbulence.NewSample(wp, smp.Severity, smp.Probability, smp.SourceID, smp.HasRealObservation)
		clean.ReportCount = smp.ReportCount
		next[wp.Index] = clean
	}
	return next, remaining
}

func ordered(resolved map[int]turbulence.TurbulenceSample) []turbulence.TurbulenceSample {
	samples := make([]turbulence.TurbulenceSample, 0, len(resolved))
	for _, smp := range resolved {
		samples = append(samples, smp)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Waypoint.Index < samples[j].Waypoint.Index
	})
	return samples
}

// providerUsed names the contributing sources in priority order, with the
// conservative default last
func (s *Service) providerUsed(samples []turbulence.TurbulenceSample) string {
	contributed := make(map[string]bool)
	for _, smp := range samples {
		contributed[smp.SourceID] = true
	}

	var ids []string
	for _, src := range s.sources {
		name := src.Provider.Name()
		if contributed[name] {
			ids = append(ids, name)
			delete(contributed, name)
		}
	}
	defaulted := contributed[turbulence.DefaultSourceID]
	delete(contributed, turbulence.DefaultSourceID)

	// samples tagged with an id outside the chain keep a stable order
	var extra []string
	for id := range contributed {
		extra = append(extra, id)
	}
	sort.Strings(extra)
	ids = append(ids, extra...)

	if defaulted {
		ids = append(ids, turbulence.DefaultSourceID)
	}
	return strings.Join(ids, "+")
}
