package serialmux

import (
	"encoding/binary"

	"github.com/banshee-data/tubecount/internal/hose"
)

// Frame constants for the Teensy front-end wire format. All multi-byte
// fields are little-endian; the 32-bit timestamp travels as two 16-bit
// words because the front-end cannot guarantee 32-bit alignment inside the
// frame.
const (
	frameSOFR = 0x0AAF
	frameEOFR = 0xF550
	frameSize = 12
)

// Legacy per-channel format used by early front-end firmware: a 32-bit tag
// identifying the channel (or a heartbeat), a 16-bit pressure word, a
// 32-bit millisecond stamp, and a 16-bit trailer.
const (
	legacyTagChan0     = 0xFFAAAA00
	legacyTagChan1     = 0xFF555500
	legacyTagHeartbeat = 0xFFA5A500
	legacyEOFR         = 0xFF00
)

// Decoder recovers pressure samples from the raw serial byte stream. It
// keeps a rolling 12-byte window and yields a sample whenever the window
// lines up on a valid frame, so it self-synchronises after dropped bytes
// without any out-of-band framing.
//
// Legacy per-channel frames carry only one hose each; the decoder merges
// them by holding the most recent reading per channel and emitting a
// combined sample once both channels have reported.
type Decoder struct {
	window [frameSize]byte
	filled int

	legacyPressure [2]uint16
	legacySeen     [2]bool
}

// Push feeds one received byte into the window. It returns the decoded
// sample and true when the byte completed a valid frame.
func (d *Decoder) Push(b byte) (hose.Sample, bool) {
	copy(d.window[:], d.window[1:])
	d.window[frameSize-1] = b
	if d.filled < frameSize {
		d.filled++
		if d.filled < frameSize {
			return hose.Sample{}, false
		}
	}

	le := binary.LittleEndian

	if le.Uint16(d.window[0:2]) == frameSOFR && le.Uint16(d.window[10:12]) == frameEOFR {
		stampA := uint32(le.Uint16(d.window[6:8]))
		stampB := uint32(le.Uint16(d.window[8:10]))
		return hose.Sample{
			P0:     le.Uint16(d.window[2:4]),
			P1:     le.Uint16(d.window[4:6]),
			Millis: uint64(stampB<<16 | stampA),
		}, true
	}

	if le.Uint16(d.window[10:12]) == legacyEOFR {
		switch le.Uint32(d.window[0:4]) {
		case legacyTagChan0:
			return d.legacySample(0)
		case legacyTagChan1:
			return d.legacySample(1)
		case legacyTagHeartbeat:
			// Keeps the link alive; carries no pressure data.
		}
	}

	return hose.Sample{}, false
}

func (d *Decoder) legacySample(ch int) (hose.Sample, bool) {
	le := binary.LittleEndian
	d.legacyPressure[ch] = le.Uint16(d.window[4:6])
	d.legacySeen[ch] = true
	if !d.legacySeen[0] || !d.legacySeen[1] {
		return hose.Sample{}, false
	}
	return hose.Sample{
		P0:     d.legacyPressure[0],
		P1:     d.legacyPressure[1],
		Millis: uint64(le.Uint32(d.window[6:10])),
	}, true
}
