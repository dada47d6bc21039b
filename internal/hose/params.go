package hose

// Params holds the tuning constants for detection and pairing. The zero
// value is not usable; start from DefaultParams and override fields as
// needed (the config package maps the tuning JSON onto this struct).
type Params struct {
	// MinPressure and MaxPressure bound plausible ADC readings. Samples
	// outside the range are sensor glitches and are dropped before any
	// other logic sees them.
	MinPressure uint16
	MaxPressure uint16

	// RiseOffset and IdleOffset are added to the running baseline to form
	// the high and low hysteresis thresholds.
	RiseOffset uint16
	IdleOffset uint16

	// RiseCount is the number of consecutive above-high samples required
	// to confirm a rising edge. FallCount is the number of consecutive
	// below-low samples required to confirm the return to idle; it is much
	// larger so that post-pulse hose ringing cannot re-arm the channel.
	RiseCount uint32
	FallCount uint32

	// BaselineWindow is the divisor of the baseline moving average.
	BaselineWindow uint32

	// PairWindowMillis is how long a detection on one hose waits for its
	// mate on the other before it is written off as a false positive.
	PairWindowMillis uint64

	// HoseSpacingInches is the physical separation of the two hoses.
	HoseSpacingInches float64

	// MaxWheelbaseFeet caps the axle-gap estimate; larger values mean the
	// previous crossing was a different vehicle.
	MaxWheelbaseFeet float64
}

// speedFactorPerFoot converts a traversal time in milliseconds over one
// foot into miles per hour: 1 ft/ms = 681.8 mph.
const speedFactorPerFoot = 681.8

// wheelbaseFactor converts (milliseconds × mph) into feet.
const wheelbaseFactor = 0.00147

// DefaultParams returns the field-proven tuning for the standard two-hose
// rig: 12-bit ADC, ~1 kHz sample rate, hoses 12 inches apart.
func DefaultParams() Params {
	return Params{
		MinPressure:       0x0180,
		MaxPressure:       0x1000,
		RiseOffset:        0x0C0,
		IdleOffset:        0x020,
		RiseCount:         20,
		FallCount:         60,
		BaselineWindow:    250,
		PairWindowMillis:  2000,
		HoseSpacingInches: 12.0,
		MaxWheelbaseFeet:  25.0,
	}
}

// speedFactor is the constant k such that mph = k / Δt_ms for the
// configured hose spacing.
func (p Params) speedFactor() float64 {
	return speedFactorPerFoot * p.HoseSpacingInches / 12.0
}
