package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	barcelona = Coordinate{Lat: 41.30, Lon: 2.08}
	madrid    = Coordinate{Lat: 40.49, Lon: -3.57}
)

func TestGenerateWaypoints_CountAndEndpoints(t *testing.T) {
	for _, count := range []int{1, 2, 14, 15, 50} {
		wps, err := GenerateWaypoints(barcelona, madrid, count)
		require.NoError(t, err)
		require.Len(t, wps, count+1)

		assert.Equal(t, barcelona, wps[0].Coordinate)
		assert.Equal(t, madrid, wps[len(wps)-1].Coordinate)
		for i, wp := range wps {
			assert.Equal(t, i, wp.Index)
		}
	}
}

func TestGenerateWaypoints_EvenSpacing(t *testing.T) {
	wps, err := GenerateWaypoints(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 10, Lon: 20}, 10)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, wps[5].Lat, 1e-9)
	assert.InDelta(t, 10.0, wps[5].Lon, 1e-9)
}

func TestGenerateWaypoints_AntimeridianTakesShortWay(t *testing.T) {
	wps, err := GenerateWaypoints(Coordinate{Lat: 10, Lon: 170}, Coordinate{Lat: 10, Lon: -170}, 4)
	require.NoError(t, err)

	for _, wp := range wps {
		assert.GreaterOrEqual(t, math.Abs(wp.Lon), 170.0, "waypoint %d went the long way", wp.Index)
	}
}

func TestGenerateWaypoints_InvalidRoutes(t *testing.T) {
	tests := []struct {
		name        string
		origin      Coordinate
		destination Coordinate
		count       int
	}{
		{"same point", barcelona, barcelona, 15},
		{"same point across the antimeridian", Coordinate{Lat: 10, Lon: 180}, Coordinate{Lat: 10, Lon: -180}, 14},
		{"same pole", Coordinate{Lat: 90, Lon: 0}, Coordinate{Lat: 90, Lon: 120}, 14},
		{"latitude out of range", Coordinate{Lat: 91, Lon: 0}, madrid, 15},
		{"longitude out of range", barcelona, Coordinate{Lat: 0, Lon: -181}, 15},
		{"NaN", Coordinate{Lat: math.NaN(), Lon: 0}, madrid, 15},
		{"zero count", barcelona, madrid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateWaypoints(tt.origin, tt.destination, tt.count)
			require.Error(t, err)

			var routeErr *InvalidRouteError
			assert.True(t, errors.As(err, &routeErr))
		})
	}
}

func TestDistanceKm(t *testing.T) {
	d := DistanceKm(barcelona, madrid)
	assert.InDelta(t, 483, d, 15)

	assert.Zero(t, DistanceKm(madrid, madrid))
	assert.InDelta(t, d, DistanceKm(madrid, barcelona), 1e-9)

	// a quarter of a meridian
	assert.InDelta(t, EarthRadiusKm*math.Pi/2, DistanceKm(Coordinate{0, 0}, Coordinate{90, 0}), 1e-6)
}

func TestRouteDistanceKm_MatchesGreatCircleForShortRoutes(t *testing.T) {
	wps, err := GenerateWaypoints(barcelona, madrid, 14)
	require.NoError(t, err)

	total := DistanceKm(barcelona, madrid)
	assert.InEpsilon(t, total, RouteDistanceKm(wps), 0.001)
}

func TestInitialBearing(t *testing.T) {
	assert.InDelta(t, 0, InitialBearing(Coordinate{0, 0}, Coordinate{10, 0}), 1e-9)
	assert.InDelta(t, 90, InitialBearing(Coordinate{0, 0}, Coordinate{0, 10}), 1e-9)
	assert.InDelta(t, 180, InitialBearing(Coordinate{10, 0}, Coordinate{0, 0}), 1e-9)
	assert.InDelta(t, 270, InitialBearing(Coordinate{0, 10}, Coordinate{0, 0}), 1e-9)

	// Barcelona to Madrid heads roughly west-southwest
	b := InitialBearing(barcelona, madrid)
	assert.Greater(t, b, 240.0)
	assert.Less(t, b, 270.0)
}

func TestMidpointAndNearestWaypoint(t *testing.T) {
	mid := Midpoint(barcelona, madrid)
	assert.InDelta(t, DistanceKm(barcelona, mid), DistanceKm(mid, madrid), 0.01)

	wps, err := GenerateWaypoints(barcelona, madrid, 14)
	require.NoError(t, err)

	wp, dist, ok := NearestWaypoint(wps, mid)
	require.True(t, ok)
	assert.Equal(t, 7, wp.Index)
	assert.Less(t, dist, 10.0)

	_, _, ok = NearestWaypoint(nil, mid)
	assert.False(t, ok)
}

func TestUnitConversions(t *testing.T) {
	assert.InDelta(t, 100, KmToNM(185.2), 1e-9)
	assert.InDelta(t, 185.2, NMToKm(100), 1e-9)
}
