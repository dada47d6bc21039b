package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealSampleMux opens the serial port at the given path with the given
// options and returns a mux reading from it. Failure here is fatal to the
// caller: without a working port there is nothing to count.
func NewRealSampleMux(path string, opts PortOptions) (*SampleMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	return NewSampleMux[serial.Port](port), nil
}
