package weather

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

// G-AIRMETs are issued for the contiguous United States only
var conusBounds = struct{ minLat, maxLat, minLon, maxLon float64 }{24, 49, -125, -66}

// Probability attached to a waypoint inside an advisory area
var advisoryProbability = map[turbulence.SeverityLevel]int{
	turbulence.SeverityNone:     10,
	turbulence.SeverityLight:    30,
	turbulence.SeverityModerate: 55,
	turbulence.SeveritySevere:   75,
}

// Advisories split into a low and a high product at FL180
const gairmetHighFloorFt = 18000

// InCONUS reports whether c lies within the contiguous United States box
func InCONUS(c geo.Coordinate) bool {
	return c.Lat >= conusBounds.minLat && c.Lat <= conusBounds.maxLat &&
		c.Lon >= conusBounds.minLon && c.Lon <= conusBounds.maxLon
}

type gairmetResponse struct {
	Gairmets []gairmet `json:"gairmets"`
}

type gairmet struct {
	ValidTimeFrom  string   `json:"validTimeFrom"`
	ValidTimeTo    string   `json:"validTimeTo"`
	Hazard         string   `json:"hazard"`
	Severity       string   `json:"severity,omitempty"`
	MinFlightLevel *float64 `json:"minFlightLevel,omitempty"` // hundreds of feet
	MaxFlightLevel *float64 `json:"maxFlightLevel,omitempty"`
	Geom           struct {
		Coordinates [][][]float64 `json:"coordinates"` // polygon rings of [lon, lat]
	} `json:"geom"`
}

func (g gairmet) isTurbulence() bool {
	return strings.Contains(strings.ToUpper(g.Hazard), "TURB")
}

// severity of the advisory; turbulence G-AIRMETs without an explicit
// severity describe moderate turbulence
func (g gairmet) severity() turbulence.SeverityLevel {
	if strings.TrimSpace(g.Severity) == "" {
		return turbulence.SeverityModerate
	}
	return turbulence.NormalizeTextCode(g.Severity)
}

func (g gairmet) validAt(t time.Time) bool {
	if from, err := time.Parse(time.RFC3339, g.ValidTimeFrom); err == nil && t.Before(from) {
		return false
	}
	if to, err := time.Parse(time.RFC3339, g.ValidTimeTo); err == nil && t.After(to) {
		return false
	}
	return true
}

func (g gairmet) coversLevel(flightLevelFt int) bool {
	fl := float64(flightLevelFt)
	if g.MinFlightLevel != nil && fl < *g.MinFlightLevel*100 {
		return false
	}
	if g.MaxFlightLevel != nil && fl > *g.MaxFlightLevel*100 {
		return false
	}
	return true
}

func (g gairmet) contains(c geo.Coordinate) bool {
	if len(g.Geom.Coordinates) == 0 {
		return false
	}
	return pointInRing(c, g.Geom.Coordinates[0])
}

// pointInRing is a ray-casting test against a ring of [lon, lat] pairs
func pointInRing(c geo.Coordinate, ring [][]float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if len(ring[i]) < 2 || len(ring[j]) < 2 {
			continue
		}
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > c.Lat) != (yj > c.Lat) &&
			c.Lon < (xj-xi)*(c.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// GAIRMETProvider flags waypoints that fall inside active turbulence
// advisories. Coverage is limited to the contiguous United States.
type GAIRMETProvider struct {
	config ProviderConfig
	client *client
	clock  clockwork.Clock
	logger *logger.Logger
}

// NewGAIRMETProvider creates a G-AIRMET adapter
func NewGAIRMETProvider(config ProviderConfig, clock clockwork.Clock, metrics *observability.Metrics, log *logger.Logger) *GAIRMETProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	providerLogger := log.Named("gairmet-provider")
	return &GAIRMETProvider{
		config: config,
		client: newClient(SourceGAIRMET, config.MaxRetries, metrics, providerLogger),
		clock:  clock,
		logger: providerLogger,
	}
}

func (p *GAIRMETProvider) Name() string { return SourceGAIRMET }

func (p *GAIRMETProvider) FetchSamples(ctx context.Context, waypoints []geo.Waypoint, flightLevelFt int, timeout time.Duration) ([]turbulence.TurbulenceSample, error) {
	if len(waypoints) == 0 {
		return nil, nil
	}

	inArea := make([]geo.Waypoint, 0, len(waypoints))
	for _, wp := range waypoints {
		if InCONUS(wp.Coordinate) {
			inArea = append(inArea, wp)
		}
	}
	if len(inArea) == 0 {
		return nil, newProviderError(SourceGAIRMET, ErrNoCoverage, fmt.Errorf("route outside the contiguous United States"))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hazard := "turb-lo"
	if flightLevelFt >= gairmetHighFloorFt {
		hazard = "turb-hi"
	}
	reqURL := fmt.Sprintf("%s/gairmet?format=json&hazard=%s", p.config.BaseURL, hazard)

	var resp gairmetResponse
	found, err := p.client.getJSON(ctx, reqURL, &resp)
	if err != nil {
		return nil, err
	}
	if !found || len(resp.Gairmets) == 0 {
		p.logger.Debug("No active turbulence advisories")
		return nil, nil
	}

	now := p.clock.Now().UTC()
	active := make([]gairmet, 0, len(resp.Gairmets))
	for _, g := range resp.Gairmets {
		if g.isTurbulence() && g.validAt(now) && g.coversLevel(flightLevelFt) {
			active = append(active, g)
		}
	}

	var samples []turbulence.TurbulenceSample
	for _, wp := range inArea {
		level, hit := turbulence.SeverityNone, false
		for _, g := range active {
			if g.contains(wp.Coordinate) {
				level = turbulence.MaxSeverity(level, g.severity())
				hit = true
			}
		}
		if hit {
			samples = append(samples, turbulence.NewSample(wp, level, advisoryProbability[level], SourceGAIRMET, false))
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Waypoint.Index < samples[j].Waypoint.Index
	})

	p.logger.Debug("Advisories matched to waypoints",
		logger.Int("advisories", len(active)),
		logger.Int("waypoints_covered", len(samples)))
	return samples, nil
}
