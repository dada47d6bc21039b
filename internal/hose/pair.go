package hose

// DetectorPair owns the two channel detectors and the pairing state that
// combines them into directional crossings. All mutation of channel event
// flags goes through this owner; the single-threaded sample loop needs no
// locking.
type DetectorPair struct {
	params   Params
	channels [2]Channel

	// prevStamp is channel 1's detect time for the previous emitted
	// vehicle, used to estimate the axle gap of back-to-back crossings.
	prevStamp uint64

	seeded bool
}

// NewDetectorPair returns a pair of channel detectors with shared tuning.
func NewDetectorPair(params Params) *DetectorPair {
	return &DetectorPair{
		params:   params,
		channels: [2]Channel{NewChannel(params), NewChannel(params)},
	}
}

// Channel exposes one of the two detectors for inspection.
func (d *DetectorPair) Channel(i int) *Channel { return &d.channels[i] }

// Seed initialises both baselines, e.g. from the header line of a recorded
// sample log. If Seed is never called, the first sample fed to Process
// seeds the baselines and is not otherwise processed.
func (d *DetectorPair) Seed(p0, p1 uint16) {
	d.channels[0].SeedBaseline(p0)
	d.channels[1].SeedBaseline(p1)
	d.seeded = true
}

// Process feeds one two-channel sample through both detectors, then runs
// the pairing step. It returns a vehicle event when this sample completed a
// crossing, else nil. At most one pairing happens per sample tick even when
// both channels confirm on the same sample.
func (d *DetectorPair) Process(s Sample) *VehicleEvent {
	if !d.seeded {
		d.Seed(s.P0, s.P1)
		return nil
	}
	d.channels[0].Process(s.P0, s.Millis)
	d.channels[1].Process(s.P1, s.Millis)
	return d.pair()
}

// pair combines pending detections on both channels into a vehicle event.
func (d *DetectorPair) pair() *VehicleEvent {
	c0, c1 := &d.channels[0], &d.channels[1]
	t0, ok0 := c0.Pending()
	t1, ok1 := c1.Pending()
	if !ok0 || !ok1 {
		return nil
	}

	// Signed gap between the two detections. Channel 0 firing first
	// (smaller stamp) means the vehicle travelled hose 0 -> hose 1, which
	// is the uphill direction.
	delta := int64(t1) - int64(t0)
	gap := delta
	if gap < 0 {
		gap = -gap
	}

	// One channel fired and no companion arrived in time: the earlier
	// detection was a false positive. Keep the later one; it may still
	// pair with a future detection on the other hose.
	if uint64(gap) > d.params.PairWindowMillis {
		if t0 <= t1 {
			c0.clearEvent()
		} else {
			c1.clearEvent()
		}
		return nil
	}

	c0.clearEvent()
	c1.clearEvent()

	// Simultaneous detections leave the speed indeterminate; drop the pair.
	if gap == 0 {
		return nil
	}

	dir := Up
	if delta < 0 {
		dir = Down
	}
	mph := d.params.speedFactor() / float64(gap)

	// Axle-gap estimate against the previous vehicle, always measured on
	// hose 1 so consecutive deltas are comparable.
	var wheelbase *float64
	if d.prevStamp != 0 {
		axleGap := t1 - d.prevStamp
		if d.prevStamp > t1 {
			axleGap = d.prevStamp - t1
		}
		feet := wheelbaseFactor * float64(axleGap) * mph
		if feet < d.params.MaxWheelbaseFeet {
			wheelbase = &feet
		}
	}
	d.prevStamp = t1

	later := t0
	if t1 > later {
		later = t1
	}
	return &VehicleEvent{
		Millis:        later,
		SpeedMPH:      mph,
		Direction:     dir,
		WheelbaseFeet: wheelbase,
	}
}
