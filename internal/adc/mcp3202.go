// Package adc samples the two hose pressure sensors through an MCP3202
// 12-bit ADC on bit-banged SPI-style GPIO lines. This is the direct
// acquisition path for deployments where the sensor board hangs off the
// SBC's header instead of a serial front-end.
package adc

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/banshee-data/tubecount/internal/hose"
	"github.com/banshee-data/tubecount/internal/timeutil"
)

// Pins names the four GPIO lines wired to the MCP3202.
type Pins struct {
	CS   string
	CLK  string
	MOSI string
	MISO string
}

// MCP3202 drives the converter and stamps samples in epoch milliseconds.
type MCP3202 struct {
	cs   gpio.PinOut
	clk  gpio.PinOut
	mosi gpio.PinOut
	miso gpio.PinIn

	clock timeutil.Clock
}

// Open initialises the GPIO host and claims the four pins. Failure here is
// fatal to the caller: without the converter there is nothing to sample.
func Open(pins Pins, clock timeutil.Clock) (*MCP3202, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise GPIO host: %w", err)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	a := &MCP3202{clock: clock}
	for _, p := range []struct {
		name string
		out  *gpio.PinOut
		in   *gpio.PinIn
	}{
		{pins.CS, &a.cs, nil},
		{pins.CLK, &a.clk, nil},
		{pins.MOSI, &a.mosi, nil},
		{pins.MISO, nil, &a.miso},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, fmt.Errorf("GPIO pin %q not found", p.name)
		}
		if p.out != nil {
			*p.out = pin
		} else {
			*p.in = pin
		}
	}

	// Quiesce the bus: converter deselected, clock low.
	if err := a.cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to set CS: %w", err)
	}
	if err := a.clk.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set CLK: %w", err)
	}
	if err := a.miso.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure MISO: %w", err)
	}

	return a, nil
}

// Sample reads both converter channels and stamps the pair.
func (a *MCP3202) Sample() (hose.Sample, error) {
	p0, err := a.readChannel(0)
	if err != nil {
		return hose.Sample{}, err
	}
	p1, err := a.readChannel(1)
	if err != nil {
		return hose.Sample{}, err
	}
	return hose.Sample{
		P0:     p0,
		P1:     p1,
		Millis: uint64(a.clock.Now().UnixMilli()),
	}, nil
}

// Next implements hose.SampleSource, pacing reads to the sample period.
func (a *MCP3202) Next(ctx context.Context) (hose.Sample, error) {
	if err := ctx.Err(); err != nil {
		return hose.Sample{}, err
	}
	s, err := a.Sample()
	if err != nil {
		return hose.Sample{}, err
	}
	a.clock.Sleep(samplePeriod)
	return s, nil
}

// samplePeriod paces the acquisition loop at roughly 1 kHz.
const samplePeriod = time.Millisecond

// readChannel runs one MCP3202 conversion: clock out the start bit,
// single-ended mode, the channel select and MSB-first bits, then clock in
// a null bit followed by 12 data bits.
func (a *MCP3202) readChannel(channel int) (uint16, error) {
	if err := a.cs.Out(gpio.Low); err != nil {
		return 0, fmt.Errorf("failed to assert CS: %w", err)
	}
	defer a.cs.Out(gpio.High)

	cmd := []gpio.Level{
		gpio.High,                // start
		gpio.High,                // SGL/DIFF: single-ended
		gpio.Level(channel == 1), // ODD/SIGN: channel select
		gpio.High,                // MSBF
	}
	for _, bit := range cmd {
		if err := a.writeBit(bit); err != nil {
			return 0, err
		}
	}

	// Null bit, then 12 data bits MSB first.
	if _, err := a.readBit(); err != nil {
		return 0, err
	}
	var value uint16
	for i := 0; i < 12; i++ {
		bit, err := a.readBit()
		if err != nil {
			return 0, err
		}
		value <<= 1
		if bit {
			value |= 1
		}
	}
	return value, nil
}

func (a *MCP3202) writeBit(l gpio.Level) error {
	if err := a.mosi.Out(l); err != nil {
		return fmt.Errorf("failed to write MOSI: %w", err)
	}
	return a.pulseClock()
}

func (a *MCP3202) readBit() (gpio.Level, error) {
	if err := a.pulseClock(); err != nil {
		return gpio.Low, err
	}
	return a.miso.Read(), nil
}

func (a *MCP3202) pulseClock() error {
	if err := a.clk.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to raise CLK: %w", err)
	}
	if err := a.clk.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to lower CLK: %w", err)
	}
	return nil
}
