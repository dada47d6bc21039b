// Package samplelog reads and writes the recorded raw-sample format: one
// sample per line, three space-separated hex fields `p0 p1 t_ms`. The
// first line of a log is not a sample; it seeds the two channel baselines.
//
// Recorded logs are the replay input: feeding one back through the
// detection pipeline must reproduce the live run's event output byte for
// byte.
package samplelog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/tubecount/internal/hose"
	"github.com/banshee-data/tubecount/internal/monitoring"
)

// Older logs were written against a 40-bit millisecond timer that wrapped;
// stamps below the wrap horizon are re-biased so a single log stays
// monotonic.
const (
	wrapHorizonMillis = 0x1_0000_0000_00
	wrapBiasMillis    = 0x1_6100_0000_00
)

// Reader replays a recorded sample log. It implements hose.SampleSource.
type Reader struct {
	scan   *bufio.Scanner
	line   int
	seeded bool

	baseline0 uint16
	baseline1 uint16
}

// NewReader wraps a sample log stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{scan: bufio.NewScanner(r)}
}

// Seed consumes the header line and returns the initial baselines. Next
// calls it implicitly if it has not been called yet.
func (r *Reader) Seed() (p0, p1 uint16, err error) {
	if r.seeded {
		return r.baseline0, r.baseline1, nil
	}
	for r.scan.Scan() {
		r.line++
		s, ok := r.parseLine(r.scan.Text())
		if !ok {
			continue
		}
		r.baseline0, r.baseline1 = s.P0, s.P1
		r.seeded = true
		return r.baseline0, r.baseline1, nil
	}
	if err := r.scan.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("sample log has no header line")
}

// Next returns the next sample, skipping malformed lines. It returns
// io.EOF at end of log.
func (r *Reader) Next(ctx context.Context) (hose.Sample, error) {
	if !r.seeded {
		if _, _, err := r.Seed(); err != nil {
			return hose.Sample{}, err
		}
	}
	for r.scan.Scan() {
		if err := ctx.Err(); err != nil {
			return hose.Sample{}, err
		}
		r.line++
		s, ok := r.parseLine(r.scan.Text())
		if !ok {
			continue
		}
		return s, nil
	}
	if err := r.scan.Err(); err != nil {
		return hose.Sample{}, err
	}
	return hose.Sample{}, io.EOF
}

// parseLine decodes one `p0 p1 t_ms` hex triplet. Malformed records are
// logged and skipped; a corrupt line must never abort a replay.
func (r *Reader) parseLine(line string) (hose.Sample, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		if strings.TrimSpace(line) != "" {
			monitoring.Debugf("sample log line %d: %d fields, want 3", r.line, len(fields))
		}
		return hose.Sample{}, false
	}

	p0, err0 := strconv.ParseUint(fields[0], 16, 16)
	p1, err1 := strconv.ParseUint(fields[1], 16, 16)
	t, err2 := strconv.ParseUint(fields[2], 16, 64)
	if err0 != nil || err1 != nil || err2 != nil {
		monitoring.Debugf("sample log line %d: unparseable hex fields", r.line)
		return hose.Sample{}, false
	}

	if t < wrapHorizonMillis {
		t += wrapBiasMillis
	}

	return hose.Sample{P0: uint16(p0), P1: uint16(p1), Millis: t}, true
}

// Writer records samples in the replayable log format.
type Writer struct {
	w      io.Writer
	seeded bool
}

// NewWriter wraps an output stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Seed writes the header line carrying the initial baselines.
func (w *Writer) Seed(p0, p1 uint16, millis uint64) error {
	if w.seeded {
		return fmt.Errorf("sample log already seeded")
	}
	w.seeded = true
	_, err := fmt.Fprintf(w.w, "%04x %04x %x\n", p0, p1, millis)
	return err
}

// Write appends one sample. The first sample written without a prior Seed
// becomes the header line.
func (w *Writer) Write(s hose.Sample) error {
	w.seeded = true
	_, err := fmt.Fprintf(w.w, "%04x %04x %x\n", s.P0, s.P1, s.Millis)
	return err
}
