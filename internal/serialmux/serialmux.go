// Package serialmux reads the framed serial stream from the sensor
// front-end and multiplexes the decoded pressure samples to any number of
// subscribers: the detection pipeline, a sample-log recorder, a debug tap.
package serialmux

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/tubecount/internal/hose"
)

// SampleMux owns a serial port and fans decoded samples out to
// subscribers. Slow subscribers miss samples rather than stalling the
// acquisition loop.
type SampleMux[T SerialPorter] struct {
	port T
	dec  Decoder

	subscribers  map[string]chan hose.Sample
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// SampleMuxInterface is the mux contract the binaries program against, so
// a mock mux can stand in for real hardware.
type SampleMuxInterface interface {
	// Subscribe creates a new channel receiving decoded samples. The
	// returned ID identifies the subscription for Unsubscribe.
	Subscribe() (string, chan hose.Sample)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(string)
	// Monitor reads from the serial port, decodes frames, and fans
	// samples out until the context is cancelled or the port fails.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error
}

// NewSampleMux creates a SampleMux backed by the given port.
func NewSampleMux[T SerialPorter](port T) *SampleMux[T] {
	return &SampleMux[T]{
		port:        port,
		subscribers: make(map[string]chan hose.Sample),
	}
}

func (m *SampleMux[T]) Subscribe() (string, chan hose.Sample) {
	id := uuid.NewString()
	ch := make(chan hose.Sample, 64)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

func (m *SampleMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Monitor reads raw bytes from the port and publishes every decoded
// sample. The blocking port read runs in its own goroutine so context
// cancellation is never stuck behind a quiet serial line.
func (m *SampleMux[T]) Monitor(ctx context.Context) error {
	sampleChan := make(chan hose.Sample)
	readErrChan := make(chan error, 1)

	go func() {
		defer close(sampleChan)
		buf := make([]byte, 256)
		for {
			n, err := m.port.Read(buf)
			if err != nil {
				if errors.Is(err, io.EOF) {
					// Fixture or mock port drained; clean shutdown.
					return
				}
				select {
				case readErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			for _, b := range buf[:n] {
				s, ok := m.dec.Push(b)
				if !ok {
					continue
				}
				select {
				case sampleChan <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case s, ok := <-sampleChan:
			if !ok {
				// The reader sends any port error before closing the
				// sample channel, so report it rather than a clean stop.
				select {
				case err := <-readErrChan:
					return err
				default:
				}
				return nil
			}
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- s:
				default:
					// Subscriber is behind; drop rather than stall
					// the acquisition loop.
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *SampleMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
