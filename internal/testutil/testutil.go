// Package testutil provides shared test helpers for building synthetic
// pressure traces.
package testutil

import (
	"testing"

	"github.com/banshee-data/tubecount/internal/hose"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Pulse describes a synthetic tire pulse on one channel.
type Pulse struct {
	Channel int
	FromMS  uint64
	ToMS    uint64 // exclusive
}

// Trace generates a 1 kHz two-channel sample series covering [0, untilMS)
// at the given quiet baseline, with each pulse raising its channel well
// above the detection threshold.
func Trace(baseline uint16, untilMS uint64, pulses ...Pulse) []hose.Sample {
	high := baseline + 0x200
	samples := make([]hose.Sample, 0, untilMS)
	for t := uint64(0); t < untilMS; t++ {
		s := hose.Sample{P0: baseline, P1: baseline, Millis: t}
		for _, p := range pulses {
			if t < p.FromMS || t >= p.ToMS {
				continue
			}
			if p.Channel == 0 {
				s.P0 = high
			} else {
				s.P1 = high
			}
		}
		samples = append(samples, s)
	}
	return samples
}
