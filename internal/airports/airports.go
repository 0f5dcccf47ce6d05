package airports

import (
	"context"
	"errors"
	"strings"

	"github.com/yegors/routewx/internal/geo"
)

// ErrNotFound is returned when no airport matches a code
var ErrNotFound = errors.New("airport not found")

// Airport is one entry of the airport directory
type Airport struct {
	Ident string `json:"ident"` // ICAO or local identifier
	IATA  string `json:"iataCode,omitempty"`
	Name  string `json:"name"`
	Type  string `json:"type"` // large_airport, medium_airport, small_airport, seaplane_base
	geo.Coordinate
	ElevationFt  int    `json:"elevationFt"`
	Country      string `json:"country"`
	Municipality string `json:"municipality,omitempty"`
}

// Directory resolves airport codes to locations
type Directory interface {
	// GetByCode looks up an airport by ICAO ident or IATA code
	GetByCode(ctx context.Context, code string) (Airport, error)
	// Search returns airports whose code, name or city matches query
	Search(ctx context.Context, query string, limit int) ([]Airport, error)
}

// NormalizeCode upper-cases and trims an airport code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
