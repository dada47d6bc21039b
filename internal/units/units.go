// Package units provides speed-unit conversion and timezone helpers. The
// counter measures and logs speeds in MPH; conversion happens only at
// display time.
package units

import "fmt"

// Unit constants
const (
	MPH = "mph"
	KPH = "kph"
	MPS = "mps"
)

// ValidUnits contains all accepted display units.
var ValidUnits = []string{MPH, KPH, MPS}

// IsValid checks whether the given unit is a known display unit.
func IsValid(unit string) bool {
	for _, u := range ValidUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed measured in MPH to the target display
// unit. Unknown units pass the value through unchanged.
func ConvertSpeed(speedMPH float64, targetUnit string) float64 {
	switch targetUnit {
	case MPH:
		return speedMPH
	case KPH:
		return speedMPH * 1.609344
	case MPS:
		return speedMPH * 0.44704
	default:
		return speedMPH
	}
}

// FormatSpeed renders a speed in the target unit with its suffix.
func FormatSpeed(speedMPH float64, targetUnit string) string {
	if !IsValid(targetUnit) {
		targetUnit = MPH
	}
	return fmt.Sprintf("%.1f %s", ConvertSpeed(speedMPH, targetUnit), targetUnit)
}
