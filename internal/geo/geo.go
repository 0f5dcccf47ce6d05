// Package geo contains route geometry: coordinates, waypoint generation and
// great-circle distances.
package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used for haversine distances
	EarthRadiusKm = 6371.0

	kmPerNM = 1.852
)

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waypoint is a sampled point along a route
type Waypoint struct {
	Coordinate
	Index int `json:"indexInRoute"`
}

// InvalidRouteError reports a route that cannot be sampled
type InvalidRouteError struct {
	Reason string
}

func (e *InvalidRouteError) Error() string {
	return "invalid route: " + e.Reason
}

// Validate checks that the coordinate lies within valid ranges
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &InvalidRouteError{Reason: fmt.Sprintf("latitude %v out of range [-90, 90]", c.Lat)}
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return &InvalidRouteError{Reason: fmt.Sprintf("longitude %v out of range [-180, 180]", c.Lon)}
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// minRouteKm is the shortest route that is not a single point
const minRouteKm = 1e-6

// GenerateWaypoints returns count+1 points from origin to destination, evenly
// spaced in latitude/longitude. The first and last points are the endpoints
// themselves.
func GenerateWaypoints(origin, destination Coordinate, count int) ([]Waypoint, error) {
	if count < 1 {
		return nil, &InvalidRouteError{Reason: fmt.Sprintf("waypoint count must be at least 1, got %d", count)}
	}
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}
	// the same point can be spelled twice at the poles and the antimeridian
	if DistanceKm(origin, destination) < minRouteKm {
		return nil, &InvalidRouteError{Reason: "origin and destination are the same point"}
	}

	dLat := destination.Lat - origin.Lat
	dLon := destination.Lon - origin.Lon
	// take the short way across the antimeridian
	if dLon > 180 {
		dLon -= 360
	} else if dLon < -180 {
		dLon += 360
	}

	waypoints := make([]Waypoint, count+1)
	for i := 0; i <= count; i++ {
		var c Coordinate
		switch i {
		case 0:
			c = origin
		case count:
			c = destination
		default:
			f := float64(i) / float64(count)
			c = Coordinate{
				Lat: origin.Lat + dLat*f,
				Lon: normalizeLon(origin.Lon + dLon*f),
			}
		}
		waypoints[i] = Waypoint{Coordinate: c, Index: i}
	}
	return waypoints, nil
}

// DistanceKm returns the haversine distance between two coordinates
func DistanceKm(a, b Coordinate) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RouteDistanceKm sums the leg distances along the waypoints
func RouteDistanceKm(waypoints []Waypoint) float64 {
	total := 0.0
	for i := 1; i < len(waypoints); i++ {
		total += DistanceKm(waypoints[i-1].Coordinate, waypoints[i].Coordinate)
	}
	return total
}

// InitialBearing returns the true course in degrees [0, 360) from a toward b
func InitialBearing(a, b Coordinate) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return normalizeHeading(toDeg(math.Atan2(y, x)))
}

// Midpoint returns the great-circle midpoint of a and b
func Midpoint(a, b Coordinate) Coordinate {
	lat1 := toRad(a.Lat)
	lon1 := toRad(a.Lon)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	bx := math.Cos(lat2) * math.Cos(dLon)
	by := math.Cos(lat2) * math.Sin(dLon)
	lat := math.Atan2(math.Sin(lat1)+math.Sin(lat2), math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx)+by*by))
	lon := lon1 + math.Atan2(by, math.Cos(lat1)+bx)
	return Coordinate{Lat: toDeg(lat), Lon: normalizeLon(toDeg(lon))}
}

// NearestWaypoint returns the waypoint closest to c and its distance in km.
// ok is false when waypoints is empty.
func NearestWaypoint(waypoints []Waypoint, c Coordinate) (wp Waypoint, distKm float64, ok bool) {
	distKm = math.Inf(1)
	for _, w := range waypoints {
		if d := DistanceKm(w.Coordinate, c); d < distKm {
			wp, distKm, ok = w, d, true
		}
	}
	return wp, distKm, ok
}

// KmToNM converts kilometres to nautical miles
func KmToNM(km float64) float64 { return km / kmPerNM }

// NMToKm converts nautical miles to kilometres
func NMToKm(nm float64) float64 { return nm * kmPerNM }

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
