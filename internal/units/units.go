// Package units provides shared constants and conversions for angle units
package units

import "math"

// Unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// RadiansToDegrees is the factor the agent firmware uses when logging headings.
const RadiansToDegrees = 57.29577951308232

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degrees, Radians}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "deg, rad"
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * RadiansToDegrees
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ConvertAngle converts an angle in degrees to the target units. Telemetry
// carries headings in degrees.
func ConvertAngle(deg float64, targetUnits string) float64 {
	switch targetUnits {
	case Radians:
		return ToRadians(deg)
	default:
		return deg // default to degrees if unknown unit
	}
}
