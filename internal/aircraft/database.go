// Package aircraft holds aircraft type characteristics and the
// aircraft-specific forecast adjustment.
package aircraft

import (
	"sort"
	"strings"
)

// Category groups aircraft by fuselage class
type Category string

const (
	CategoryNarrowBody Category = "narrow-body"
	CategoryWideBody   Category = "wide-body"
	CategoryRegional   Category = "regional"
)

// TurbulenceRating describes how well the airframe rides out turbulence
type TurbulenceRating string

const (
	RatingStandard TurbulenceRating = "standard"
	RatingEnhanced TurbulenceRating = "enhanced"
	RatingHeavy    TurbulenceRating = "heavy"
)

// Type describes one aircraft type
type Type struct {
	Code                string           `json:"code"` // ICAO type designator
	Name                string           `json:"name"`
	Manufacturer        string           `json:"manufacturer"`
	Category            Category         `json:"category"`
	MaxCruiseAltitudeFt int              `json:"maxCruiseAltitudeFt"`
	TypicalCruiseAltFt  int              `json:"typicalCruiseAltitudeFt"`
	CruiseSpeedKt       int              `json:"cruiseSpeedKt"`
	TurbulenceRating    TurbulenceRating `json:"turbulenceRating"`
	WingSpanM           float64          `json:"wingSpanM"`
	LengthM             float64          `json:"lengthM"`
	MaxTakeoffWeightKg  int              `json:"maxTakeoffWeightKg"`
}

var database = map[string]Type{
	"A320": {"A320", "Airbus A320", "Airbus", CategoryNarrowBody, 39800, 37000, 447, RatingStandard, 35.8, 37.57, 78000},
	"A321": {"A321", "Airbus A321", "Airbus", CategoryNarrowBody, 39800, 37000, 447, RatingStandard, 35.8, 44.51, 93500},
	"B737": {"B737", "Boeing 737", "Boeing", CategoryNarrowBody, 41000, 37000, 453, RatingStandard, 35.9, 39.5, 79010},
	"B738": {"B738", "Boeing 737-800", "Boeing", CategoryNarrowBody, 41000, 37000, 453, RatingStandard, 35.79, 39.47, 79010},
	"A330": {"A330", "Airbus A330", "Airbus", CategoryWideBody, 41450, 38000, 470, RatingEnhanced, 60.3, 63.69, 242000},
	"B777": {"B777", "Boeing 777", "Boeing", CategoryWideBody, 43100, 39000, 490, RatingHeavy, 64.8, 73.86, 351530},
	"B787": {"B787", "Boeing 787 Dreamliner", "Boeing", CategoryWideBody, 43000, 39000, 490, RatingEnhanced, 60.1, 62.8, 254011},
	"A350": {"A350", "Airbus A350", "Airbus", CategoryWideBody, 43100, 39000, 488, RatingEnhanced, 64.75, 66.89, 280000},
	"E190": {"E190", "Embraer E190", "Embraer", CategoryRegional, 41000, 35000, 447, RatingStandard, 28.72, 36.24, 51800},
	"CRJ9": {"CRJ9", "Bombardier CRJ900", "Bombardier", CategoryRegional, 41000, 36000, 447, RatingStandard, 24.85, 36.2, 38330},
}

// Designator variants that share characteristics with a base type
var aliases = map[string]string{
	"A20N": "A320",
	"A21N": "A321",
	"B38M": "B738",
	"A332": "A330",
	"A333": "A330",
	"B77W": "B777",
	"B772": "B777",
	"B788": "B787",
	"B789": "B787",
	"A359": "A350",
	"E195": "E190",
}

// Lookup returns the aircraft type for an ICAO designator
func Lookup(code string) (Type, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if base, ok := aliases[code]; ok {
		code = base
	}
	t, ok := database[code]
	return t, ok
}

// All returns every known aircraft type ordered by code
func All() []Type {
	out := make([]Type, 0, len(database))
	for _, t := range database {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
