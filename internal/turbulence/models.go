package turbulence

import (
	"time"

	"github.com/yegors/routewx/internal/geo"
)

// DefaultSourceID marks samples synthesized when no provider had data
const DefaultSourceID = "fallback-default"

// TurbulenceSample is one provider's estimate at one waypoint
type TurbulenceSample struct {
	Waypoint           geo.Waypoint  `json:"waypoint"`
	Severity           SeverityLevel `json:"severity"`
	Probability        int           `json:"probability"` // 0-100
	SourceID           string        `json:"sourceId"`
	HasRealObservation bool          `json:"hasRealObservation"`
	ReportCount        int           `json:"reportCount,omitempty"` // underlying observations, when known
}

// NewSample builds a sample with the probability clamped to [0, 100] and an
// invalid severity replaced by Light.
func NewSample(wp geo.Waypoint, severity SeverityLevel, probability int, sourceID string, real bool) TurbulenceSample {
	if !severity.Valid() {
		severity = ConservativeSeverity
	}
	return TurbulenceSample{
		Waypoint:           wp,
		Severity:           severity,
		Probability:        clampProbability(probability),
		SourceID:           sourceID,
		HasRealObservation: real,
	}
}

// DefaultSample is the conservative sample used for waypoints no provider covered
func DefaultSample(wp geo.Waypoint, probability int) TurbulenceSample {
	return NewSample(wp, ConservativeSeverity, probability, DefaultSourceID, false)
}

// RouteSegment spans two consecutive waypoints
type RouteSegment struct {
	Start             geo.Waypoint  `json:"start"`
	End               geo.Waypoint  `json:"end"`
	DistanceKm        float64       `json:"distanceKm"`
	StartProgressPct  float64       `json:"startProgressPct"`
	EndProgressPct    float64       `json:"endProgressPct"`
	AvgSeverityIndex  float64       `json:"avgSeverityIndex"`
	MaxSeverity       SeverityLevel `json:"maxSeverity"`
	Probability       int           `json:"probability"`
	HasRealData       bool          `json:"hasRealData"`
	TrueCourseDeg     float64       `json:"trueCourseDeg"`
	MagneticCourseDeg float64       `json:"magneticCourseDeg"`
	Description       string        `json:"description"`
}

// AircraftAdjustment records an aircraft-specific adjustment together with the
// unadjusted values it was computed from
type AircraftAdjustment struct {
	AircraftType        string        `json:"aircraftType,omitempty"`
	Category            string        `json:"category"`
	BaseMaxSeverity     SeverityLevel `json:"baseMaxSeverity"`
	BaseProbability     int           `json:"baseProbability"`
	AdjustedMaxSeverity SeverityLevel `json:"adjustedMaxSeverity"`
	AdjustedProbability int           `json:"adjustedProbability"`
	Explanation         string        `json:"explanation"`
}

// RouteForecast is the aggregate result for one route request. Values are
// never modified after construction; adjustments return a new forecast.
type RouteForecast struct {
	Segments            []RouteSegment      `json:"segments"`
	OverallMaxSeverity  SeverityLevel       `json:"overallMaxSeverity"`
	Probability         int                 `json:"probability"`
	SmoothPercentage    int                 `json:"smoothPercentage"`
	TurbulentPercentage int                 `json:"turbulentPercentage"`
	OverallRating       string              `json:"overallRating"`
	Recommendation      string              `json:"recommendation"`
	ProviderUsed        string              `json:"providerUsed"`
	RealDataCount       int                 `json:"realDataCount"`
	TotalDistanceKm     float64             `json:"totalDistanceKm"`
	FlightLevelFt       int                 `json:"flightLevelFt"`
	WaypointCount       int                 `json:"waypointCount"`
	GeneratedAt         time.Time           `json:"generatedAt"`
	AircraftAdjustment  *AircraftAdjustment `json:"aircraftAdjustment,omitempty"`
}

// NewRouteForecast aggregates ordered samples into a forecast
func NewRouteForecast(samples []TurbulenceSample, providerUsed string, flightLevelFt int, generatedAt time.Time) RouteForecast {
	segments := BuildSegments(samples)
	summary := Summarize(segments)

	realCount := 0
	for _, s := range samples {
		if s.HasRealObservation {
			realCount++
		}
	}

	return RouteForecast{
		Segments:            segments,
		OverallMaxSeverity:  summary.OverallMaxSeverity,
		Probability:         summary.Probability,
		SmoothPercentage:    summary.SmoothPercentage,
		TurbulentPercentage: summary.TurbulentPercentage,
		OverallRating:       summary.Rating,
		Recommendation:      summary.Recommendation,
		ProviderUsed:        providerUsed,
		RealDataCount:       realCount,
		TotalDistanceKm:     summary.TotalDistanceKm,
		FlightLevelFt:       flightLevelFt,
		WaypointCount:       len(samples),
		GeneratedAt:         generatedAt,
	}
}

// HasSufficientData reports whether any sample came from a real observation
func (f RouteForecast) HasSufficientData() bool {
	return f.RealDataCount > 0
}
