package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	R       = 287.058 // Specific gas constant for dry air (J/(kg·K))
	G       = 9.80665 // Gravity (m/s^2)
	T0      = 288.15  // Standard Sea Level Temperature (K)
	P0      = 1013.25 // Standard Sea Level Pressure (hPa)
	L       = 0.0065  // Temperature Lapse Rate (K/m) in Troposphere
	FtToM   = 0.3048  // Feet to metres

	// ISA Layer Boundaries
	TropopauseAltM    = 11000.0 // 11 km
	StratosphereTempK = 216.65  // Constant temperature in Stratosphere
	TropopausePress   = 226.32  // Pressure at Tropopause (hPa)
)

// AltitudeToPressure converts pressure altitude in feet to pressure in hPa
// Uses Standard Atmosphere model, supporting Troposphere and Stratosphere (up to 20km approx)
func AltitudeToPressure(altFt float64) float64 {
	altM := altFt * FtToM
	if altM < 0 {
		altM = 0
	}

	if altM <= TropopauseAltM {
		// P = P0 * (1 - L*h/T0)^(g/RL)
		exponent := G / (R * L)
		base := 1 - (L * altM / T0)
		return P0 * math.Pow(base, exponent)
	}
	// P = P_trop * exp( -g*(h - h_trop) / (R * T_strat) )
	relAlt := altM - TropopauseAltM
	exponent := -(G * relAlt) / (R * StratosphereTempK)
	return TropopausePress * math.Exp(exponent)
}

// PressureToAltitude is the inverse of AltitudeToPressure, in feet
func PressureToAltitude(pressureHPa float64) float64 {
	if pressureHPa >= P0 {
		return 0
	}
	var altM float64
	if pressureHPa >= TropopausePress {
		altM = T0 / L * (1 - math.Pow(pressureHPa/P0, R*L/G))
	} else {
		altM = TropopauseAltM - R*StratosphereTempK/G*math.Log(pressureHPa/TropopausePress)
	}
	return altM / FtToM
}

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, altFt*FtToM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D() // Declination
}
