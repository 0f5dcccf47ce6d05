package turbulence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/routewx/internal/geo"
)

func routeSamples(t *testing.T, severities ...SeverityLevel) []TurbulenceSample {
	t.Helper()
	wps, err := geo.GenerateWaypoints(
		geo.Coordinate{Lat: 41.30, Lon: 2.08},
		geo.Coordinate{Lat: 40.49, Lon: -3.57},
		len(severities)-1,
	)
	require.NoError(t, err)

	samples := make([]TurbulenceSample, len(wps))
	for i, wp := range wps {
		samples[i] = NewSample(wp, severities[i], 10*severities[i].Index()+10, "test", i%2 == 0)
	}
	return samples
}

func TestBuildSegments_PairsConsecutiveSamples(t *testing.T) {
	samples := routeSamples(t, SeverityNone, SeverityLight, SeveritySevere, SeverityNone)
	segments := BuildSegments(samples)
	require.Len(t, segments, 3)

	assert.Equal(t, SeverityLight, segments[0].MaxSeverity)
	assert.Equal(t, 0.5, segments[0].AvgSeverityIndex)
	assert.Equal(t, "occasional light turbulence", segments[0].Description)

	assert.Equal(t, SeveritySevere, segments[1].MaxSeverity)
	assert.Equal(t, 2.0, segments[1].AvgSeverityIndex)
	assert.Equal(t, "turbulent conditions, keep seatbelt fastened", segments[1].Description)
	assert.Equal(t, 30, segments[1].Probability)

	assert.Equal(t, SeveritySevere, segments[2].MaxSeverity)
	assert.Zero(t, segments[0].StartProgressPct)
	assert.Equal(t, 100.0, segments[2].EndProgressPct)
	assert.True(t, segments[0].HasRealData)
}

func TestBuildSegments_OrdersByWaypointIndex(t *testing.T) {
	samples := routeSamples(t, SeverityNone, SeverityModerate, SeverityNone)
	shuffled := []TurbulenceSample{samples[2], samples[0], samples[1]}

	segments := BuildSegments(shuffled)
	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].Start.Index)
	assert.Equal(t, 2, segments[1].End.Index)

	// input is not reordered in place
	assert.Equal(t, 2, shuffled[0].Waypoint.Index)
}

func TestBuildSegments_TooFewSamples(t *testing.T) {
	assert.Nil(t, BuildSegments(nil))
	assert.Nil(t, BuildSegments(routeSamples(t, SeverityLight, SeverityLight)[:1]))
}

func TestBuildSegments_DistancesSumToRouteDistance(t *testing.T) {
	sev := make([]SeverityLevel, 15)
	samples := routeSamples(t, sev...)
	segments := BuildSegments(samples)
	require.Len(t, segments, 14)

	sum := 0.0
	for _, seg := range segments {
		sum += seg.DistanceKm
	}
	direct := geo.DistanceKm(samples[0].Waypoint.Coordinate, samples[14].Waypoint.Coordinate)
	assert.InEpsilon(t, direct, sum, 0.001)
}

func TestSummarize_PercentagesAlwaysAddUp(t *testing.T) {
	cases := [][]SeverityLevel{
		{SeverityNone, SeverityNone, SeverityNone},
		{SeverityNone, SeverityModerate, SeverityNone, SeverityLight},
		{SeveritySevere, SeveritySevere},
		{SeverityLight, SeverityModerate, SeverityLight, SeverityLight, SeverityNone, SeverityLight, SeverityLight},
	}

	for _, sev := range cases {
		s := Summarize(BuildSegments(routeSamples(t, sev...)))
		assert.Equal(t, 100, s.SmoothPercentage+s.TurbulentPercentage)
		assert.GreaterOrEqual(t, s.SmoothPercentage, 0)
		assert.LessOrEqual(t, s.SmoothPercentage, 100)
	}
}

func TestSummarize_RatingBands(t *testing.T) {
	s := Summarize(BuildSegments(routeSamples(t, SeverityNone, SeverityLight, SeverityNone)))
	assert.Equal(t, 100, s.SmoothPercentage)
	assert.Equal(t, "Excellent", s.Rating)
	assert.Equal(t, SeverityLight, s.OverallMaxSeverity)

	s = Summarize(BuildSegments(routeSamples(t, SeveritySevere, SeveritySevere, SeveritySevere)))
	assert.Equal(t, 0, s.SmoothPercentage)
	assert.Equal(t, "Rough", s.Rating)
	assert.Equal(t, SeveritySevere, s.OverallMaxSeverity)

	empty := Summarize(nil)
	assert.Equal(t, 100, empty.SmoothPercentage)
	assert.Equal(t, 0, empty.TurbulentPercentage)
}

func TestRateSmoothness(t *testing.T) {
	tests := []struct {
		smooth int
		want   string
	}{
		{100, "Excellent"},
		{90, "Excellent"},
		{89, "Good"},
		{70, "Good"},
		{69, "Moderate"},
		{50, "Moderate"},
		{49, "Rough"},
		{0, "Rough"},
	}
	for _, tt := range tests {
		rating, rec := RateSmoothness(tt.smooth)
		assert.Equal(t, tt.want, rating, "smooth=%d", tt.smooth)
		assert.NotEmpty(t, rec)
	}
}

func TestWithMagneticCourse(t *testing.T) {
	segments := BuildSegments(routeSamples(t, SeverityNone, SeverityNone))
	require.Len(t, segments, 1)

	adjusted := WithMagneticCourse(segments, func(geo.Coordinate) float64 { return 2.5 })
	assert.InDelta(t, segments[0].TrueCourseDeg-2.5, adjusted[0].MagneticCourseDeg, 1e-9)
	assert.Equal(t, segments[0].TrueCourseDeg, segments[0].MagneticCourseDeg, "input left untouched")
}

func TestNewRouteForecast(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := routeSamples(t, SeverityLight, SeverityModerate, SeverityLight)

	f := NewRouteForecast(samples, "test", 35000, now)
	assert.Len(t, f.Segments, 2)
	assert.Equal(t, SeverityModerate, f.OverallMaxSeverity)
	assert.Equal(t, 2, f.RealDataCount)
	assert.Equal(t, 3, f.WaypointCount)
	assert.Equal(t, 35000, f.FlightLevelFt)
	assert.Equal(t, now, f.GeneratedAt)
	assert.Equal(t, 100, f.SmoothPercentage+f.TurbulentPercentage)
	assert.True(t, f.HasSufficientData())
}

func TestDefaultSample(t *testing.T) {
	s := DefaultSample(geo.Waypoint{Index: 3}, 25)
	assert.Equal(t, SeverityLight, s.Severity)
	assert.Equal(t, 25, s.Probability)
	assert.Equal(t, DefaultSourceID, s.SourceID)
	assert.False(t, s.HasRealObservation)

	clamped := NewSample(geo.Waypoint{}, SeverityLevel(9), 140, "x", true)
	assert.Equal(t, SeverityLight, clamped.Severity)
	assert.Equal(t, 100, clamped.Probability)
}
