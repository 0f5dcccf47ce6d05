package weather

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/physics"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

func newTestGFS(baseURL string) *GFSProvider {
	cfg := DefaultGFSConfig()
	cfg.BaseURL = baseURL
	cfg.MaxRetries = 0
	cfg.MaxConcurrency = 4
	return NewGFSProvider(cfg, turbulence.DefaultHeuristic(), clockwork.NewFakeClockAt(testNow),
		observability.NewMetricsForTesting(), logger.NewNop())
}

// gfsBody builds an hourly response with constant values at 250 and 200 hPa
func gfsBody(speed250, speed200, dir, temp250, temp200 float64) string {
	series := func(v float64) string { return fmt.Sprintf("[%g,%g,%g]", v, v, v) }
	return fmt.Sprintf(`{"hourly":{
		"time":["2026-03-10T11:00","2026-03-10T12:00","2026-03-10T13:00"],
		"windspeed_250hPa":%s,"winddirection_250hPa":%s,"temperature_250hPa":%s,
		"windspeed_200hPa":%s,"winddirection_200hPa":%s,"temperature_200hPa":%s}}`,
		series(speed250), series(dir), series(temp250),
		series(speed200), series(dir), series(temp200))
}

func TestGFSProvider_ShearDrivesSeverity(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		severity turbulence.SeverityLevel
		prob     int
	}{
		{"jet with shear", gfsBody(60, 90, 270, -50, -56), turbulence.SeverityModerate, 45},
		{"calm", gfsBody(10, 12, 270, -40, -45), turbulence.SeverityNone, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hourly := r.URL.Query().Get("hourly")
				assert.True(t, strings.Contains(hourly, "windspeed_250hPa"), hourly)
				assert.True(t, strings.Contains(hourly, "windspeed_200hPa"), hourly)
				assert.Equal(t, "kn", r.URL.Query().Get("wind_speed_unit"))
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			wps := testRoute(t, 4)
			samples, err := newTestGFS(srv.URL).FetchSamples(context.Background(), wps, 35000, time.Second)
			require.NoError(t, err)
			require.Len(t, samples, len(wps))
			for _, s := range samples {
				assert.Equal(t, tc.severity, s.Severity)
				assert.Equal(t, tc.prob, s.Probability)
				assert.Equal(t, SourceGFS, s.SourceID)
				assert.False(t, s.HasRealObservation)
			}
		})
	}
}

func TestGFSProvider_PartialFailureDropsWaypoint(t *testing.T) {
	wps := testRoute(t, 4)
	failLat := fmt.Sprintf("%.4f", wps[2].Lat)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == failLat {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, gfsBody(40, 45, 250, -50, -55))
	}))
	defer srv.Close()

	samples, err := newTestGFS(srv.URL).FetchSamples(context.Background(), wps, 35000, time.Second)
	require.NoError(t, err)
	require.Len(t, samples, len(wps)-1)
	for _, s := range samples {
		assert.NotEqual(t, 2, s.Waypoint.Index)
	}
}

func TestGFSProvider_MissingValuesYieldNoSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hourly":{"time":["2026-03-10T12:00"],
			"windspeed_250hPa":[null],"winddirection_250hPa":[270],"temperature_250hPa":[-50],
			"windspeed_200hPa":[80],"winddirection_200hPa":[270],"temperature_200hPa":[-55]}}`)
	}))
	defer srv.Close()

	samples, err := newTestGFS(srv.URL).FetchSamples(context.Background(), testRoute(t, 2), 35000, time.Second)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestGFSProvider_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestGFS(srv.URL).FetchSamples(context.Background(), testRoute(t, 2), 35000, time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBracketLevels(t *testing.T) {
	lower, upper, ratio := bracketLevels(physics.AltitudeToPressure(35000))
	assert.Equal(t, 250, gfsLevels[lower])
	assert.Equal(t, 200, gfsLevels[upper])
	assert.InDelta(t, 0.23, ratio, 0.02)

	lower, upper, ratio = bracketLevels(550)
	assert.Equal(t, 600, gfsLevels[lower])
	assert.Equal(t, 500, gfsLevels[upper])
	assert.InDelta(t, 0.5, ratio, 1e-9)

	lower, upper, _ = bracketLevels(1013)
	assert.Equal(t, 0, lower)
	assert.Equal(t, 0, upper)

	lower, upper, _ = bracketLevels(100)
	assert.Equal(t, len(gfsLevels)-1, lower)
	assert.Equal(t, lower, upper)
}

func TestTimeBracket(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)}

	i1, i2, alpha := timeBracket(times, base.Add(90*time.Minute))
	assert.Equal(t, 1, i1)
	assert.Equal(t, 2, i2)
	assert.InDelta(t, 0.5, alpha, 1e-9)

	i1, i2, _ = timeBracket(times, base.Add(-time.Hour))
	assert.Equal(t, 0, i1)
	assert.Equal(t, 0, i2)

	i1, i2, _ = timeBracket(times, base.Add(5*time.Hour))
	assert.Equal(t, 2, i1)
	assert.Equal(t, 2, i2)
}

func TestWindComponentsRoundTrip(t *testing.T) {
	for _, dir := range []float64{0, 45, 90, 180, 270, 315} {
		u, v := windComponents(50, dir)
		w := toWindAloft(u, v, -50, math.NaN())
		assert.InDelta(t, 50, w.SpeedKt, 1e-9)
		assert.InDelta(t, 0, math.Remainder(w.DirectionDeg-dir, 360), 1e-6, "direction %v", dir)
	}

	// westerly: blowing towards the east
	u, v := windComponents(10, 270)
	assert.InDelta(t, 10, u, 1e-9)
	assert.InDelta(t, 0, v, 1e-9)
}
