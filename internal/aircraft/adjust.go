package aircraft

import (
	"fmt"

	"github.com/yegors/routewx/internal/turbulence"
)

const (
	wideBodyModerateReduction = 15
	wideBodyModerateFloor     = 10
	wideBodyLightReduction    = 10
	ratingReduction           = 5
	probabilityFloor          = 5
)

// Adjust applies the category rule to a forecast. Larger airframes ride out
// light and moderate turbulence better: a wide-body lowers Moderate to Light
// and trims the probability. The result never exceeds the unadjusted values.
//
// Adjustments are always computed from the unadjusted baseline recorded on the
// forecast, so applying the same adjustment again yields the same forecast.
func Adjust(f turbulence.RouteForecast, category Category) turbulence.RouteForecast {
	return apply(f, "", category, RatingStandard, "")
}

// AdjustForAircraft applies the category rule and the turbulence rating bonus
// for an ICAO type designator. Unknown types leave the forecast unchanged.
func AdjustForAircraft(f turbulence.RouteForecast, typeCode string) turbulence.RouteForecast {
	t, ok := Lookup(typeCode)
	if !ok {
		return f
	}
	return apply(f, t.Code, t.Category, t.TurbulenceRating, t.Name)
}

func apply(f turbulence.RouteForecast, code string, category Category, rating TurbulenceRating, name string) turbulence.RouteForecast {
	baseSeverity, baseProbability := f.OverallMaxSeverity, f.Probability
	if f.AircraftAdjustment != nil {
		baseSeverity = f.AircraftAdjustment.BaseMaxSeverity
		baseProbability = f.AircraftAdjustment.BaseProbability
	}
	if name == "" {
		name = "This " + string(category) + " aircraft"
	}

	severity, probability := baseSeverity, baseProbability
	var explanation string

	if category == CategoryWideBody {
		switch baseSeverity {
		case turbulence.SeverityModerate:
			severity = turbulence.SeverityLight
			probability = reduce(probability, wideBodyModerateReduction, wideBodyModerateFloor)
			explanation = fmt.Sprintf("%s is a heavier wide-body airframe and is more stable in turbulence.", name)
		case turbulence.SeverityLight:
			probability = reduce(probability, wideBodyLightReduction, probabilityFloor)
			explanation = fmt.Sprintf("%s will handle these conditions easily.", name)
		}
	}

	if rating == RatingEnhanced || rating == RatingHeavy {
		probability = reduce(probability, ratingReduction, probabilityFloor)
		if explanation != "" {
			explanation += " "
		}
		explanation += "Its flight control systems reduce the effect of turbulence."
	}

	if explanation == "" {
		explanation = fmt.Sprintf("%s is not expected to ride differently from a standard airliner.", name)
	}

	out := f
	out.OverallMaxSeverity = severity
	out.Probability = probability
	out.AircraftAdjustment = &turbulence.AircraftAdjustment{
		AircraftType:        code,
		Category:            string(category),
		BaseMaxSeverity:     baseSeverity,
		BaseProbability:     baseProbability,
		AdjustedMaxSeverity: severity,
		AdjustedProbability: probability,
		Explanation:         explanation,
	}
	return out
}

// reduce lowers p by delta without going under floor, and never raises it
func reduce(p, delta, floor int) int {
	r := p - delta
	if r < floor {
		r = floor
	}
	if r > p {
		return p
	}
	return r
}
