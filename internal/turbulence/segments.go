package turbulence

import (
	"math"
	"sort"

	"github.com/yegors/routewx/internal/geo"
)

var segmentDescriptions = map[SeverityLevel]string{
	SeverityNone:     "smooth conditions",
	SeverityLight:    "occasional light turbulence",
	SeverityModerate: "possible moderate turbulence",
	SeveritySevere:   "turbulent conditions, keep seatbelt fastened",
}

// Rating bands over smoothPercentage, best first
var ratingBands = []struct {
	minSmooth      int
	rating         string
	recommendation string
}{
	{90, "Excellent", "Very smooth flight expected. Ideal flying conditions."},
	{70, "Good", "Good flight with occasional light turbulence. Completely normal."},
	{50, "Moderate", "Moderate turbulence on some segments. Keep your seatbelt fastened."},
	{0, "Rough", "Bumpier than usual. The crew is prepared for these conditions; keep your seatbelt fastened."},
}

// DescribeSeverity returns the short passenger-facing text for a level
func DescribeSeverity(s SeverityLevel) string {
	if d, ok := segmentDescriptions[s]; ok {
		return d
	}
	return segmentDescriptions[ConservativeSeverity]
}

// BuildSegments turns consecutive pairs of samples into segments. Samples are
// ordered by waypoint index first; fewer than two samples yield no segments.
func BuildSegments(samples []TurbulenceSample) []RouteSegment {
	if len(samples) < 2 {
		return nil
	}

	ordered := make([]TurbulenceSample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Waypoint.Index < ordered[j].Waypoint.Index
	})

	distances := make([]float64, len(ordered)-1)
	total := 0.0
	for i := range distances {
		distances[i] = geo.DistanceKm(ordered[i].Waypoint.Coordinate, ordered[i+1].Waypoint.Coordinate)
		total += distances[i]
	}

	segments := make([]RouteSegment, len(distances))
	covered := 0.0
	for i := range segments {
		a, b := ordered[i], ordered[i+1]
		maxSev := MaxSeverity(a.Severity, b.Severity)
		course := geo.InitialBearing(a.Waypoint.Coordinate, b.Waypoint.Coordinate)

		seg := RouteSegment{
			Start:             a.Waypoint,
			End:               b.Waypoint,
			DistanceKm:        distances[i],
			AvgSeverityIndex:  float64(a.Severity.Index()+b.Severity.Index()) / 2,
			MaxSeverity:       maxSev,
			Probability:       int(math.Round(float64(a.Probability+b.Probability) / 2)),
			HasRealData:       a.HasRealObservation || b.HasRealObservation,
			TrueCourseDeg:     course,
			MagneticCourseDeg: course,
			Description:       DescribeSeverity(maxSev),
		}
		if total > 0 {
			seg.StartProgressPct = covered / total * 100
			covered += distances[i]
			seg.EndProgressPct = covered / total * 100
		}
		segments[i] = seg
	}
	if total > 0 {
		segments[len(segments)-1].EndProgressPct = 100
	}
	return segments
}

// WithMagneticCourse returns a copy of the segments with MagneticCourseDeg set
// from the variation (degrees east positive) at each segment start.
func WithMagneticCourse(segments []RouteSegment, variation func(c geo.Coordinate) float64) []RouteSegment {
	out := make([]RouteSegment, len(segments))
	for i, seg := range segments {
		mc := math.Mod(seg.TrueCourseDeg-variation(seg.Start.Coordinate), 360)
		if mc < 0 {
			mc += 360
		}
		seg.MagneticCourseDeg = mc
		out[i] = seg
	}
	return out
}

// Summary holds the route-level statistics derived from segments
type Summary struct {
	SmoothPercentage    int
	TurbulentPercentage int
	OverallMaxSeverity  SeverityLevel
	Probability         int
	Rating              string
	Recommendation      string
	TotalDistanceKm     float64
}

// Summarize computes distance-weighted route statistics. Segments rated None
// or Light count as smooth; the two percentages always add up to 100.
func Summarize(segments []RouteSegment) Summary {
	total := 0.0
	for _, seg := range segments {
		total += seg.DistanceKm
	}

	weight := func(seg RouteSegment) float64 {
		if total > 0 {
			return seg.DistanceKm / total
		}
		return 1 / float64(len(segments))
	}

	smoothShare := 1.0
	probability := 0.0
	maxSev := SeverityNone
	if len(segments) > 0 {
		smoothShare = 0
		for _, seg := range segments {
			w := weight(seg)
			if seg.MaxSeverity.IsSmooth() {
				smoothShare += w
			}
			probability += w * float64(seg.Probability)
			maxSev = MaxSeverity(maxSev, seg.MaxSeverity)
		}
	}

	smooth := int(math.Round(smoothShare * 100))
	if smooth > 100 {
		smooth = 100
	}
	rating, recommendation := RateSmoothness(smooth)

	return Summary{
		SmoothPercentage:    smooth,
		TurbulentPercentage: 100 - smooth,
		OverallMaxSeverity:  maxSev,
		Probability:         clampProbability(int(math.Round(probability))),
		Rating:              rating,
		Recommendation:      recommendation,
		TotalDistanceKm:     total,
	}
}

// RateSmoothness maps a smooth percentage onto the rating bands
func RateSmoothness(smoothPercentage int) (rating, recommendation string) {
	for _, b := range ratingBands {
		if smoothPercentage >= b.minSmooth {
			return b.rating, b.recommendation
		}
	}
	last := ratingBands[len(ratingBands)-1]
	return last.rating, last.recommendation
}
