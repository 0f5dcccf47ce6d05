package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

// Probability reported for a waypoint whose pilot reports are all smooth
const smoothReportProbability = 10

type pirepResponse struct {
	Pireps []pirepReport `json:"pireps"`
}

type pirepReport struct {
	ObsTime     string           `json:"obsTime"`
	Lat         float64          `json:"lat"`
	Lon         float64          `json:"lon"`
	FlightLevel *float64         `json:"flightLevel,omitempty"` // hundreds of feet
	AircraftRef string           `json:"aircraftRef,omitempty"`
	Turbulence  *pirepTurbulence `json:"turbulence,omitempty"`
	RawText     string           `json:"rawText"`
}

type pirepTurbulence struct {
	Intensity       string   `json:"intensity"`
	BaseFlightLevel *float64 `json:"baseFlightLevel,omitempty"`
	TopFlightLevel  *float64 `json:"topFlightLevel,omitempty"`
}

// severity returns the reported intensity, or None when the report carries no
// turbulence information
func (r pirepReport) severity() turbulence.SeverityLevel {
	if r.Turbulence == nil || r.Turbulence.Intensity == "" {
		return turbulence.SeverityNone
	}
	return turbulence.NormalizeTextCode(r.Turbulence.Intensity)
}

// relevantAt reports whether the report applies within bandFt of the flight
// level. Reports without any altitude are kept.
func (r pirepReport) relevantAt(flightLevelFt, bandFt int) bool {
	fl := float64(flightLevelFt)
	band := float64(bandFt)
	if t := r.Turbulence; t != nil && t.BaseFlightLevel != nil && t.TopFlightLevel != nil {
		base := math.Min(*t.BaseFlightLevel, *t.TopFlightLevel) * 100
		top := math.Max(*t.BaseFlightLevel, *t.TopFlightLevel) * 100
		return fl >= base-band && fl <= top+band
	}
	if r.FlightLevel == nil {
		return true
	}
	return math.Abs(*r.FlightLevel*100-fl) <= band
}

// PIREPProvider derives samples from recent pilot reports near the route.
// One query covers the whole route; reports are matched to the nearest
// waypoint.
type PIREPProvider struct {
	config PIREPConfig
	client *client
	clock  clockwork.Clock
	logger *logger.Logger
}

// NewPIREPProvider creates a pilot report adapter
func NewPIREPProvider(config PIREPConfig, clock clockwork.Clock, metrics *observability.Metrics, log *logger.Logger) *PIREPProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	providerLogger := log.Named("pirep-provider")
	return &PIREPProvider{
		config: config,
		client: newClient(SourcePIREP, config.MaxRetries, metrics, providerLogger),
		clock:  clock,
		logger: providerLogger,
	}
}

func (p *PIREPProvider) Name() string { return SourcePIREP }

// reports are matched against the whole route, so samples are not independent
func (p *PIREPProvider) routeScoped() {}

// SearchRadiusNM returns the query radius for a route of the given length:
// half the route plus 50 NM, capped at the configured maximum.
func (p *PIREPProvider) SearchRadiusNM(routeKm float64) int {
	r := math.Round(geo.KmToNM(routeKm)/2) + 50
	if p.config.MaxRadiusNM > 0 && r > p.config.MaxRadiusNM {
		r = p.config.MaxRadiusNM
	}
	return int(r)
}

func (p *PIREPProvider) FetchSamples(ctx context.Context, waypoints []geo.Waypoint, flightLevelFt int, timeout time.Duration) ([]turbulence.TurbulenceSample, error) {
	if len(waypoints) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	first := waypoints[0].Coordinate
	last := waypoints[len(waypoints)-1].Coordinate
	center := geo.Midpoint(first, last)
	radiusNM := p.SearchRadiusNM(geo.DistanceKm(first, last))

	now := p.clock.Now().UTC()
	start := now.Add(-time.Duration(p.config.HoursBack) * time.Hour)

	params := url.Values{}
	params.Set("format", "json")
	params.Set("date", start.Format("2006-01-02T15:04:05Z"))
	params.Set("endDate", now.Format("2006-01-02T15:04:05Z"))
	params.Set("location", fmt.Sprintf("%.4f,%.4f", center.Lat, center.Lon))
	params.Set("distance", fmt.Sprintf("%d", radiusNM))
	reqURL := fmt.Sprintf("%s/pirep?%s", p.config.BaseURL, params.Encode())

	var resp pirepResponse
	found, err := p.client.getJSON(ctx, reqURL, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Pireps) == 0 {
		p.logger.Debug("No pilot reports near route", logger.Int("radius_nm", radiusNM))
		return nil, nil
	}

	samples := p.aggregate(resp.Pireps, waypoints, flightLevelFt)
	p.logger.Debug("Pilot reports matched to waypoints",
		logger.Int("reports", len(resp.Pireps)),
		logger.Int("waypoints_covered", len(samples)),
		logger.Int("radius_nm", radiusNM))
	return samples, nil
}

type reportTally struct {
	waypoint  geo.Waypoint
	total     int
	turbulent int
	max       turbulence.SeverityLevel
}

func (p *PIREPProvider) aggregate(reports []pirepReport, waypoints []geo.Waypoint, flightLevelFt int) []turbulence.TurbulenceSample {
	matchKm := geo.NMToKm(p.config.MatchRadiusNM)
	tallies := make(map[int]*reportTally)

	for _, r := range reports {
		if !r.relevantAt(flightLevelFt, p.config.AltitudeBandFt) {
			continue
		}
		wp, dist, ok := geo.NearestWaypoint(waypoints, geo.Coordinate{Lat: r.Lat, Lon: r.Lon})
		if !ok || (matchKm > 0 && dist > matchKm) {
			continue
		}

		t, exists := tallies[wp.Index]
		if !exists {
			t = &reportTally{waypoint: wp}
			tallies[wp.Index] = t
		}
		t.total++
		if sev := r.severity(); sev > turbulence.SeverityNone {
			t.turbulent++
			t.max = turbulence.MaxSeverity(t.max, sev)
		}
	}

	samples := make([]turbulence.TurbulenceSample, 0, len(tallies))
	for _, t := range tallies {
		var s turbulence.TurbulenceSample
		if t.turbulent == 0 {
			s = turbulence.NewSample(t.waypoint, turbulence.SeverityNone, smoothReportProbability, SourcePIREP, true)
		} else {
			prob := turbulence.CombineObservationRatio(t.turbulent, t.total, t.max)
			s = turbulence.NewSample(t.waypoint, t.max, prob, SourcePIREP, true)
		}
		s.ReportCount = t.total
		samples = append(samples, s)
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Waypoint.Index < samples[j].Waypoint.Index
	})
	return samples
}
