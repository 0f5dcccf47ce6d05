package weather

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/physics"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

// Pressure levels published by the GFS endpoint, surface to ceiling (hPa)
var gfsLevels = []int{1000, 950, 925, 900, 850, 800, 700, 600, 500, 400, 300, 250, 200, 150}

// windAloft is the interpolated state of the atmosphere at one waypoint
type windAloft struct {
	SpeedKt      float64
	DirectionDeg float64
	TemperatureC float64
	ShearKt      float64 // vector wind difference across the bracketing levels; NaN when clamped to one level
}

// GFSProvider scores winds aloft from the GFS model at each waypoint.
// Variability is taken as the vertical wind shear across the pressure levels
// that bracket the flight level.
type GFSProvider struct {
	config    ProviderConfig
	heuristic turbulence.HeuristicThresholds
	client    *client
	clock     clockwork.Clock
	logger    *logger.Logger
}

// NewGFSProvider creates a GFS winds aloft adapter
func NewGFSProvider(config ProviderConfig, heuristic turbulence.HeuristicThresholds, clock clockwork.Clock, metrics *observability.Metrics, log *logger.Logger) *GFSProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	providerLogger := log.Named("gfs-provider")
	return &GFSProvider{
		config:    config,
		heuristic: heuristic,
		client:    newClient(SourceGFS, config.MaxRetries, metrics, providerLogger),
		clock:     clock,
		logger:    providerLogger,
	}
}

func (p *GFSProvider) Name() string { return SourceGFS }

func (p *GFSProvider) FetchSamples(ctx context.Context, waypoints []geo.Waypoint, flightLevelFt int, timeout time.Duration) ([]turbulence.TurbulenceSample, error) {
	if len(waypoints) == 0 {
		return nil, nil
	}

	lower, upper, ratio := bracketLevels(physics.AltitudeToPressure(float64(flightLevelFt)))
	now := p.clock.Now().UTC()

	samples, err := sampleEach(ctx, SourceGFS, waypoints, p.config.MaxConcurrency, timeout,
		func(ctx context.Context, wp geo.Waypoint) (turbulence.TurbulenceSample, bool, error) {
			w, ok, err := p.fetchWaypoint(ctx, wp.Coordinate, lower, upper, ratio, now)
			if err != nil || !ok {
				return turbulence.TurbulenceSample{}, false, err
			}
			sev, prob := p.heuristic.Evaluate(w.SpeedKt, w.ShearKt, w.TemperatureC)
			return turbulence.NewSample(wp, sev, prob, SourceGFS, false), true, nil
		})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("GFS winds aloft sampled",
		logger.Int("requested", len(waypoints)),
		logger.Int("sampled", len(samples)),
		logger.Int("lower_hpa", gfsLevels[lower]),
		logger.Int("upper_hpa", gfsLevels[upper]),
		logger.Float64("lower_level_ft", math.Round(physics.PressureToAltitude(float64(gfsLevels[lower])))))
	return samples, nil
}

func (p *GFSProvider) fetchWaypoint(ctx context.Context, c geo.Coordinate, lower, upper int, ratio float64, now time.Time) (windAloft, bool, error) {
	levels := []int{gfsLevels[lower]}
	if upper != lower {
		levels = append(levels, gfsLevels[upper])
	}

	vars := make([]string, 0, 3*len(levels))
	for _, l := range levels {
		vars = append(vars, fmt.Sprintf("temperature_%dhPa,windspeed_%dhPa,winddirection_%dhPa", l, l, l))
	}
	reqURL := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&hourly=%s&wind_speed_unit=kn&timezone=UTC&forecast_days=2",
		p.config.BaseURL, c.Lat, c.Lon, strings.Join(vars, ","))

	var result map[string]interface{}
	found, err := p.client.getJSON(ctx, reqURL, &result)
	if err != nil || !found {
		return windAloft{}, false, err
	}

	hourly, ok := result["hourly"].(map[string]interface{})
	if !ok {
		return windAloft{}, false, nil
	}
	times := parseHourlyTimes(hourly)
	if len(times) == 0 {
		return windAloft{}, false, nil
	}
	i1, i2, alpha := timeBracket(times, now)

	type levelWind struct{ u, v, temp float64 }
	atLevel := func(l int) (levelWind, bool) {
		suffix := fmt.Sprintf("%dhPa", l)
		var lw [2]levelWind
		for k, idx := range []int{i1, i2} {
			ws, ok1 := extractValue(hourly, "windspeed_"+suffix, idx)
			wd, ok2 := extractValue(hourly, "winddirection_"+suffix, idx)
			temp, ok3 := extractValue(hourly, "temperature_"+suffix, idx)
			if !ok1 || !ok2 || !ok3 {
				return levelWind{}, false
			}
			u, v := windComponents(ws, wd)
			lw[k] = levelWind{u, v, temp}
		}
		return levelWind{
			u:    lerp(lw[0].u, lw[1].u, alpha),
			v:    lerp(lw[0].v, lw[1].v, alpha),
			temp: lerp(lw[0].temp, lw[1].temp, alpha),
		}, true
	}

	lw, ok := atLevel(gfsLevels[lower])
	if !ok {
		return windAloft{}, false, nil
	}
	if upper == lower {
		return toWindAloft(lw.u, lw.v, lw.temp, math.NaN()), true, nil
	}
	uw, ok := atLevel(gfsLevels[upper])
	if !ok {
		return windAloft{}, false, nil
	}

	shear := math.Hypot(uw.u-lw.u, uw.v-lw.v)
	return toWindAloft(
		lerp(lw.u, uw.u, ratio),
		lerp(lw.v, uw.v, ratio),
		lerp(lw.temp, uw.temp, ratio),
		shear,
	), true, nil
}

// bracketLevels returns the indices of the published levels bounding the
// target pressure and the vertical interpolation ratio between them
func bracketLevels(targetHPa float64) (lower, upper int, ratio float64) {
	if targetHPa >= float64(gfsLevels[0]) {
		return 0, 0, 0
	}
	last := len(gfsLevels) - 1
	if targetHPa <= float64(gfsLevels[last]) {
		return last, last, 0
	}
	for i := 0; i < last; i++ {
		p1 := float64(gfsLevels[i])   // higher pressure (lower altitude)
		p2 := float64(gfsLevels[i+1]) // lower pressure (higher altitude)
		if targetHPa <= p1 && targetHPa >= p2 {
			return i, i + 1, (p1 - targetHPa) / (p1 - p2)
		}
	}
	return last, last, 0
}

// timeBracket finds the forecast hours around now and the interpolation
// factor between them, clamping outside the forecast range
func timeBracket(times []time.Time, now time.Time) (i1, i2 int, alpha float64) {
	if !now.After(times[0]) {
		return 0, 0, 0
	}
	last := len(times) - 1
	if !now.Before(times[last]) {
		return last, last, 0
	}
	for i := 0; i < last; i++ {
		if !now.Before(times[i]) && !now.After(times[i+1]) {
			d := times[i+1].Sub(times[i]).Seconds()
			if d <= 0 {
				return i, i, 0
			}
			return i, i + 1, now.Sub(times[i]).Seconds() / d
		}
	}
	return last, last, 0
}

func parseHourlyTimes(hourly map[string]interface{}) []time.Time {
	raw, ok := hourly["time"].([]interface{})
	if !ok {
		return nil
	}
	times := make([]time.Time, 0, len(raw))
	for _, t := range raw {
		ts, ok := t.(string)
		if !ok {
			return nil
		}
		// Open-Meteo format: "2023-12-09T14:00"
		parsed, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			return nil
		}
		times = append(times, parsed)
	}
	return times
}

// extractValue reads hourly[key][idx]; ok is false for missing or null values
func extractValue(hourly map[string]interface{}, key string, idx int) (float64, bool) {
	if arr, ok := hourly[key].([]interface{}); ok && idx >= 0 && len(arr) > idx {
		if val, ok := arr[idx].(float64); ok {
			return val, true
		}
	}
	return 0, false
}

// windComponents converts speed and meteorological direction (from) into
// east (u) and north (v) components
func windComponents(speed, dirDeg float64) (u, v float64) {
	rad := dirDeg * math.Pi / 180.0
	return -speed * math.Sin(rad), -speed * math.Cos(rad)
}

func toWindAloft(u, v, temp, shear float64) windAloft {
	dir := math.Mod(math.Atan2(-u, -v)*180/math.Pi+360, 360)
	return windAloft{
		SpeedKt:      math.Hypot(u, v),
		DirectionDeg: dir,
		TemperatureC: temp,
		ShearKt:      shear,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
