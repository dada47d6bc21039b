package hose

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// SampleSource yields two-channel pressure samples on demand. Concrete
// sources are the bit-banged ADC and the sample log replay reader; the
// framed serial path pushes samples through Pipeline.Feed instead. Next
// returns io.EOF when the source is exhausted.
type SampleSource interface {
	Next(ctx context.Context) (Sample, error)
}

// EventFunc receives each emitted vehicle event. A non-nil error stops the
// pipeline.
type EventFunc func(VehicleEvent) error

// SampleFunc observes every raw sample before detection, e.g. to record a
// replayable sample log. May be nil.
type SampleFunc func(Sample) error

// Pipeline drives a DetectorPair over a sample stream. It is the single
// straight-line processing path shared by live and replay runs, which is
// what makes replay output byte-identical to the live run on the same
// samples.
type Pipeline struct {
	Pair    *DetectorPair
	OnEvent EventFunc
	Tap     SampleFunc
}

// NewPipeline builds a pipeline around a fresh DetectorPair.
func NewPipeline(params Params, onEvent EventFunc) *Pipeline {
	return &Pipeline{
		Pair:    NewDetectorPair(params),
		OnEvent: onEvent,
	}
}

// Feed processes a single sample.
func (p *Pipeline) Feed(s Sample) error {
	if p.Tap != nil {
		if err := p.Tap(s); err != nil {
			return fmt.Errorf("sample tap: %w", err)
		}
	}
	if ev := p.Pair.Process(s); ev != nil {
		if err := p.OnEvent(*ev); err != nil {
			return fmt.Errorf("event sink: %w", err)
		}
	}
	return nil
}

// Run pulls samples from src until the source is exhausted or the context
// is cancelled. Source exhaustion (io.EOF) is a normal return.
func (p *Pipeline) Run(ctx context.Context, src SampleSource) error {
	for {
		s, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := p.Feed(s); err != nil {
			return err
		}
	}
}
