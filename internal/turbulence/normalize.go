package turbulence

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Conservative result used whenever an input cannot be interpreted
const (
	ConservativeSeverity    = SeverityLight
	ConservativeProbability = 20
)

var intensityTokens = map[string]SeverityLevel{
	"SMOOTH":   SeverityNone,
	"SMTH":     SeverityNone,
	"NEG":      SeverityNone,
	"NIL":      SeverityNone,
	"NONE":     SeverityNone,
	"LGT":      SeverityLight,
	"LT":       SeverityLight,
	"LIGHT":    SeverityLight,
	"MOD":      SeverityModerate,
	"MDT":      SeverityModerate,
	"MODERATE": SeverityModerate,
	"SEV":      SeveritySevere,
	"SEVERE":   SeveritySevere,
	"EXTRM":    SeveritySevere,
	"XTRM":     SeveritySevere,
	"EXTREME":  SeveritySevere,
}

// NormalizeTextCode maps a provider intensity code such as "LGT", "MOD-SEV"
// or "NEG" onto the severity scale. Ranges resolve to their upper bound and
// anything unrecognized resolves to Light.
func NormalizeTextCode(code string) SeverityLevel {
	tokens := strings.FieldsFunc(strings.ToUpper(code), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	found := false
	level := SeverityNone
	for _, tok := range tokens {
		if l, ok := intensityTokens[tok]; ok {
			found = true
			level = MaxSeverity(level, l)
		}
	}
	if !found {
		return ConservativeSeverity
	}
	return level
}

// HeuristicThresholds holds the breakpoints of the wind/temperature heuristic
type HeuristicThresholds struct {
	WindModerateKt        float64 `toml:"wind_moderate_kt"`        // wind above this scores +1
	WindHighKt            float64 `toml:"wind_high_kt"`            // wind above this scores +2
	WindJetKt             float64 `toml:"wind_jet_kt"`             // wind above this scores +3 (jet stream core)
	VariabilityModerateKt float64 `toml:"variability_moderate_kt"` // variability above this scores +1
	VariabilityHighKt     float64 `toml:"variability_high_kt"`     // variability above this scores +2
	ColdAirC              float64 `toml:"cold_air_c"`              // temperature below this scores +1
	LightMaxScore         int     `toml:"light_max_score"`         // highest score still rated light
	ModerateMaxScore      int     `toml:"moderate_max_score"`      // highest score still rated moderate
	SevereMaxScore        int     `toml:"severe_max_score"`        // highest score rated severe at the lower probability
}

// DefaultHeuristic returns the standard heuristic breakpoints
func DefaultHeuristic() HeuristicThresholds {
	return HeuristicThresholds{
		WindModerateKt:        30,
		WindHighKt:            50,
		WindJetKt:             80,
		VariabilityModerateKt: 10,
		VariabilityHighKt:     20,
		ColdAirC:              -60,
		LightMaxScore:         2,
		ModerateMaxScore:      4,
		SevereMaxScore:        6,
	}
}

// Validate checks that the breakpoints are ordered
func (h HeuristicThresholds) Validate() error {
	if !(h.WindModerateKt > 0 && h.WindModerateKt < h.WindHighKt && h.WindHighKt < h.WindJetKt) {
		return fmt.Errorf("wind thresholds must satisfy 0 < moderate < high < jet, got %v/%v/%v",
			h.WindModerateKt, h.WindHighKt, h.WindJetKt)
	}
	if !(h.VariabilityModerateKt > 0 && h.VariabilityModerateKt < h.VariabilityHighKt) {
		return fmt.Errorf("variability thresholds must satisfy 0 < moderate < high, got %v/%v",
			h.VariabilityModerateKt, h.VariabilityHighKt)
	}
	if !(h.LightMaxScore > 0 && h.LightMaxScore < h.ModerateMaxScore && h.ModerateMaxScore < h.SevereMaxScore) {
		return fmt.Errorf("score bands must satisfy 0 < light < moderate < severe, got %d/%d/%d",
			h.LightMaxScore, h.ModerateMaxScore, h.SevereMaxScore)
	}
	return nil
}

// Score returns the additive heuristic score. ok is false when the wind speed
// is unusable.
func (h HeuristicThresholds) Score(windSpeedKt, windVariabilityKt, temperatureC float64) (score int, ok bool) {
	if !usable(windSpeedKt) {
		return 0, false
	}

	switch {
	case windSpeedKt > h.WindJetKt:
		score += 3
	case windSpeedKt > h.WindHighKt:
		score += 2
	case windSpeedKt > h.WindModerateKt:
		score++
	}

	if usable(windVariabilityKt) {
		switch {
		case windVariabilityKt > h.VariabilityHighKt:
			score += 2
		case windVariabilityKt > h.VariabilityModerateKt:
			score++
		}
	}

	if !math.IsNaN(temperatureC) && !math.IsInf(temperatureC, 0) && temperatureC < h.ColdAirC {
		score++
	}
	return score, true
}

// Evaluate converts wind speed, wind variability and temperature into a
// severity and probability. Missing secondary inputs never lower the result
// below Light.
func (h HeuristicThresholds) Evaluate(windSpeedKt, windVariabilityKt, temperatureC float64) (SeverityLevel, int) {
	score, ok := h.Score(windSpeedKt, windVariabilityKt, temperatureC)
	if !ok {
		return ConservativeSeverity, ConservativeProbability
	}

	severity, probability := h.band(score)
	if severity == SeverityNone && !usable(windVariabilityKt) {
		return ConservativeSeverity, ConservativeProbability
	}
	return severity, probability
}

func (h HeuristicThresholds) band(score int) (SeverityLevel, int) {
	switch {
	case score <= 0:
		return SeverityNone, 5
	case score <= h.LightMaxScore:
		return SeverityLight, 20
	case score <= h.ModerateMaxScore:
		return SeverityModerate, 45
	case score <= h.SevereMaxScore:
		return SeveritySevere, 70
	default:
		return SeveritySevere, 90
	}
}

// NormalizeWindHeuristic applies the default heuristic breakpoints
func NormalizeWindHeuristic(windSpeedKt, windVariabilityKt, temperatureC float64) (SeverityLevel, int) {
	return DefaultHeuristic().Evaluate(windSpeedKt, windVariabilityKt, temperatureC)
}

// CombineObservationRatio turns the share of turbulent reports into a
// probability, weighted up for the more severe reports.
func CombineObservationRatio(turbulentCount, totalCount int, maxSeverity SeverityLevel) int {
	if totalCount <= 0 || turbulentCount < 0 {
		return ConservativeProbability
	}
	if turbulentCount > totalCount {
		turbulentCount = totalCount
	}

	p := float64(turbulentCount) / float64(totalCount) * 100
	switch maxSeverity {
	case SeveritySevere:
		p *= 1.5
	case SeverityModerate:
		p = math.Min(p*1.3, 85)
	}
	return clampProbability(int(math.Round(math.Min(p, 95))))
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func clampProbability(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
