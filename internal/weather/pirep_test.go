package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/observability"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fl(v float64) *float64 { return &v }

func newTestPIREP(baseURL string) *PIREPProvider {
	cfg := DefaultPIREPConfig()
	cfg.BaseURL = baseURL
	cfg.MaxRetries = 0
	return NewPIREPProvider(cfg, clockwork.NewFakeClockAt(testNow), observability.NewMetricsForTesting(), logger.NewNop())
}

func servePIREPs(t *testing.T, reports []pirepReport, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pirepResponse{Pireps: reports})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPIREPProvider_AggregatesReportsPerWaypoint(t *testing.T) {
	wps := testRoute(t, 14)
	mid, dest := wps[7], wps[14]

	reports := []pirepReport{
		// three severe reports by the midpoint
		{Lat: mid.Lat + 0.05, Lon: mid.Lon, FlightLevel: fl(350), Turbulence: &pirepTurbulence{Intensity: "SEV"}},
		{Lat: mid.Lat, Lon: mid.Lon + 0.05, FlightLevel: fl(360), Turbulence: &pirepTurbulence{Intensity: "MOD-SEV"}},
		{Lat: mid.Lat - 0.05, Lon: mid.Lon, Turbulence: &pirepTurbulence{Intensity: "SEV"}},
		// smooth ride over the origin
		{Lat: wps[0].Lat, Lon: wps[0].Lon, FlightLevel: fl(340), Turbulence: &pirepTurbulence{Intensity: "NEG"}},
		// layer report bracketing the flight level
		{Lat: dest.Lat, Lon: dest.Lon, Turbulence: &pirepTurbulence{Intensity: "MOD", BaseFlightLevel: fl(330), TopFlightLevel: fl(370)}},
		// too low
		{Lat: mid.Lat, Lon: mid.Lon, FlightLevel: fl(100), Turbulence: &pirepTurbulence{Intensity: "SEV"}},
		// too far from the route
		{Lat: 50, Lon: 2, FlightLevel: fl(350), Turbulence: &pirepTurbulence{Intensity: "SEV"}},
	}

	p := newTestPIREP("")
	srv := servePIREPs(t, reports, func(r *http.Request) {
		assert.Equal(t, "/pirep", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "2026-03-10T09:00:00Z", q.Get("date"))
		assert.Equal(t, "2026-03-10T12:00:00Z", q.Get("endDate"))
		assert.NotEmpty(t, q.Get("location"))
		assert.Equal(t, fmt.Sprint(p.SearchRadiusNM(geo.DistanceKm(wps[0].Coordinate, dest.Coordinate))), q.Get("distance"))
	})
	p.config.BaseURL = srv.URL

	samples, err := p.FetchSamples(context.Background(), wps, 35000, time.Second)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	origin := samples[0]
	assert.Equal(t, 0, origin.Waypoint.Index)
	assert.Equal(t, turbulence.SeverityNone, origin.Severity)
	assert.Equal(t, smoothReportProbability, origin.Probability)
	assert.True(t, origin.HasRealObservation)

	middle := samples[1]
	assert.Equal(t, 7, middle.Waypoint.Index)
	assert.Equal(t, turbulence.SeveritySevere, middle.Severity)
	assert.Equal(t, 95, middle.Probability)
	assert.Equal(t, 3, middle.ReportCount)
	assert.Equal(t, SourcePIREP, middle.SourceID)
	assert.True(t, middle.HasRealObservation)

	end := samples[2]
	assert.Equal(t, 14, end.Waypoint.Index)
	assert.Equal(t, turbulence.SeverityModerate, end.Severity)
	assert.Equal(t, 85, end.Probability)
}

func TestPIREPProvider_OnlyPendingWaypoints(t *testing.T) {
	wps := testRoute(t, 14)
	pending := []geo.Waypoint{wps[2], wps[3]}

	srv := servePIREPs(t, []pirepReport{
		{Lat: wps[7].Lat, Lon: wps[7].Lon, FlightLevel: fl(350), Turbulence: &pirepTurbulence{Intensity: "LGT"}},
	}, nil)

	samples, err := newTestPIREP(srv.URL).FetchSamples(context.Background(), pending, 35000, time.Second)
	require.NoError(t, err)
	assert.Empty(t, samples, "reports are matched only against the waypoints asked for")
}

func TestPIREPProvider_NoReports(t *testing.T) {
	srv := servePIREPs(t, nil, nil)

	samples, err := newTestPIREP(srv.URL).FetchSamples(context.Background(), testRoute(t, 4), 35000, time.Second)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestPIREPProvider_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestPIREP(srv.URL).FetchSamples(context.Background(), testRoute(t, 4), 35000, time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPIREPProvider_SearchRadius(t *testing.T) {
	p := newTestPIREP("")
	assert.Equal(t, 77, p.SearchRadiusNM(geo.NMToKm(54)))
	assert.Equal(t, 200, p.SearchRadiusNM(2000), "capped at the configured maximum")
}

func TestPIREPReport_RelevantAt(t *testing.T) {
	cases := []struct {
		name   string
		report pirepReport
		want   bool
	}{
		{"no altitude", pirepReport{}, true},
		{"within band", pirepReport{FlightLevel: fl(310)}, true},
		{"outside band", pirepReport{FlightLevel: fl(290)}, false},
		{"layer brackets level", pirepReport{Turbulence: &pirepTurbulence{BaseFlightLevel: fl(200), TopFlightLevel: fl(400)}}, true},
		{"layer inverted", pirepReport{Turbulence: &pirepTurbulence{BaseFlightLevel: fl(400), TopFlightLevel: fl(200)}}, true},
		{"layer far below", pirepReport{FlightLevel: fl(350), Turbulence: &pirepTurbulence{BaseFlightLevel: fl(100), TopFlightLevel: fl(150)}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.report.relevantAt(35000, 5000))
		})
	}
}
