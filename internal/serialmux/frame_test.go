package serialmux

import (
	"encoding/binary"
	"testing"

	"github.com/banshee-data/tubecount/internal/hose"
)

// encodeFrame builds a current-format frame for the given sample.
func encodeFrame(p0, p1 uint16, millis uint32) []byte {
	buf := make([]byte, frameSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], frameSOFR)
	le.PutUint16(buf[2:4], p0)
	le.PutUint16(buf[4:6], p1)
	le.PutUint16(buf[6:8], uint16(millis))
	le.PutUint16(buf[8:10], uint16(millis>>16))
	le.PutUint16(buf[10:12], frameEOFR)
	return buf
}

// encodeLegacyFrame builds an early-firmware per-channel frame.
func encodeLegacyFrame(tag uint32, pressure uint16, millis uint32) []byte {
	buf := make([]byte, frameSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], tag)
	le.PutUint16(buf[4:6], pressure)
	le.PutUint32(buf[6:10], millis)
	le.PutUint16(buf[10:12], legacyEOFR)
	return buf
}

func decodeAll(t *testing.T, data []byte) []hose.Sample {
	t.Helper()
	var dec Decoder
	var samples []hose.Sample
	for _, b := range data {
		if s, ok := dec.Push(b); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

func TestDecodeFrame(t *testing.T) {
	samples := decodeAll(t, encodeFrame(0x0412, 0x0587, 0x00012345))
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	s := samples[0]
	if s.P0 != 0x0412 || s.P1 != 0x0587 {
		t.Errorf("pressures = %04x %04x, want 0412 0587", s.P0, s.P1)
	}
	if s.Millis != 0x00012345 {
		t.Errorf("millis = %x, want 12345", s.Millis)
	}
}

func TestDecodeTimestampWordOrder(t *testing.T) {
	// The 32-bit stamp travels low word first; make sure the halves are
	// reassembled as (high<<16)|low.
	samples := decodeAll(t, encodeFrame(1, 2, 0xDEAD0123))
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	if samples[0].Millis != 0xDEAD0123 {
		t.Errorf("millis = %x, want DEAD0123", samples[0].Millis)
	}
}

func TestDecoderResyncsAfterGarbage(t *testing.T) {
	var data []byte
	data = append(data, 0x55, 0xAA, 0x0F, 0x50, 0xF5, 0x01, 0x02) // noise
	data = append(data, encodeFrame(0x0400, 0x0410, 1000)...)
	data = append(data, 0xFF, 0x00, 0x00) // partial junk
	data = append(data, encodeFrame(0x0401, 0x0411, 1001)...)

	samples := decodeAll(t, data)
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	if samples[0].Millis != 1000 || samples[1].Millis != 1001 {
		t.Errorf("stamps = %d, %d, want 1000, 1001", samples[0].Millis, samples[1].Millis)
	}
}

func TestDecoderTruncatedFrameDiscarded(t *testing.T) {
	full := encodeFrame(0x0400, 0x0410, 500)
	data := append(append([]byte(nil), full[:7]...), encodeFrame(0x0402, 0x0412, 501)...)

	samples := decodeAll(t, data)
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1 (truncated frame must not decode)", len(samples))
	}
	if samples[0].P0 != 0x0402 {
		t.Errorf("p0 = %04x, want 0402", samples[0].P0)
	}
}

func TestDecodeLegacyFramesMergeChannels(t *testing.T) {
	var data []byte
	data = append(data, encodeLegacyFrame(legacyTagChan0, 0x0400, 2000)...)
	data = append(data, encodeLegacyFrame(legacyTagChan1, 0x0410, 2001)...)
	data = append(data, encodeLegacyFrame(legacyTagChan0, 0x0600, 2002)...)

	samples := decodeAll(t, data)
	// First chan0 frame has no chan1 companion yet; the next two frames
	// each complete a merged sample.
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	if samples[0].P0 != 0x0400 || samples[0].P1 != 0x0410 || samples[0].Millis != 2001 {
		t.Errorf("first merged sample = %+v", samples[0])
	}
	if samples[1].P0 != 0x0600 || samples[1].P1 != 0x0410 || samples[1].Millis != 2002 {
		t.Errorf("second merged sample = %+v", samples[1])
	}
}

func TestLegacyHeartbeatIgnored(t *testing.T) {
	samples := decodeAll(t, encodeLegacyFrame(legacyTagHeartbeat, 0, 3000))
	if len(samples) != 0 {
		t.Fatalf("samples = %d, want 0 for heartbeat", len(samples))
	}
}
