package turbulence

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SeverityLevel is the ordered turbulence severity scale
type SeverityLevel int

const (
	SeverityNone SeverityLevel = iota
	SeverityLight
	SeverityModerate
	SeveritySevere
)

var severityNames = [...]string{"none", "light", "moderate", "severe"}

func (s SeverityLevel) String() string {
	if s < SeverityNone || s > SeveritySevere {
		return fmt.Sprintf("SeverityLevel(%d)", int(s))
	}
	return severityNames[s]
}

// Index returns the numeric position of the level on the 0..3 scale
func (s SeverityLevel) Index() int {
	return int(s)
}

// Valid reports whether s is one of the four defined levels
func (s SeverityLevel) Valid() bool {
	return s >= SeverityNone && s <= SeveritySevere
}

// Lower returns the next level down, stopping at None
func (s SeverityLevel) Lower() SeverityLevel {
	if s <= SeverityNone {
		return SeverityNone
	}
	return s - 1
}

// IsSmooth reports whether the level counts as comfortable flying
func (s SeverityLevel) IsSmooth() bool {
	return s <= SeverityLight
}

// MaxSeverity returns the more severe of a and b
func MaxSeverity(a, b SeverityLevel) SeverityLevel {
	if a > b {
		return a
	}
	return b
}

// ParseSeverity parses a level name as produced by String
func ParseSeverity(name string) (SeverityLevel, error) {
	for i, n := range severityNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return SeverityLevel(i), nil
		}
	}
	return SeverityLight, fmt.Errorf("unknown severity level %q", name)
}

func (s SeverityLevel) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid severity %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *SeverityLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
