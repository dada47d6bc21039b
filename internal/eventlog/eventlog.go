// Package eventlog reads and writes the append-only vehicle event log: one
// fixed-layout text line per vehicle. The aggregator parses the line by
// column offset, so the layout is part of the contract:
//
//	column 0:  decimal epoch seconds
//	column 34: decimal speed in MPH (blank when suppressed)
//	column 45: direction character, 'U' uphill, 'D' downhill
//
// Everything between those offsets is human-oriented and free to carry a
// local timestamp or a wheelbase annotation.
package eventlog

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/tubecount/internal/hose"
	"github.com/banshee-data/tubecount/internal/monitoring"
)

const (
	speedColumn     = 34
	speedWidth      = 6
	directionColumn = 45

	// Speeds above this are physically improbable on a residential
	// street; the printed field is blanked but the event line is still
	// written and counted.
	displayMaxMPH = 60.0
)

// Event is one parsed event-log record.
type Event struct {
	Stamp    time.Time
	SpeedMPH float64 // 0 means invalid/unknown
	Up       bool
}

// Writer appends vehicle events to a log stream.
type Writer struct {
	w   io.Writer
	loc *time.Location
}

// NewWriter wraps an output stream. The location controls the
// human-readable timestamp only; the leading epoch field is what the
// aggregator consumes.
func NewWriter(w io.Writer, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{w: w, loc: loc}
}

// Write appends one vehicle line. The event's Millis must be epoch
// milliseconds.
func (w *Writer) Write(ev hose.VehicleEvent) error {
	_, err := io.WriteString(w.w, FormatLine(ev, w.loc)+"\n")
	return err
}

// FormatLine renders one event as a log line (without the newline).
func FormatLine(ev hose.VehicleEvent, loc *time.Location) string {
	stamp := time.UnixMilli(int64(ev.Millis))

	speed := fmt.Sprintf("%*.2f", speedWidth, ev.SpeedMPH)
	if ev.SpeedMPH > displayMaxMPH {
		speed = strings.Repeat(" ", speedWidth)
	}

	line := fmt.Sprintf("%10d %s    %s mph %c",
		stamp.Unix(),
		stamp.In(loc).Format("2006/01/02 15:04:05"),
		speed,
		ev.Direction.Rune(),
	)
	if ev.WheelbaseFeet != nil {
		line += fmt.Sprintf("  wb %5.2f ft", *ev.WheelbaseFeet)
	}
	return line
}

// ParseLine decodes one event-log line by its fixed offsets. It returns
// false for records too short or too mangled to use.
func ParseLine(line string) (Event, bool) {
	if len(line) <= directionColumn {
		return Event{}, false
	}

	epoch, err := strconv.ParseInt(strings.TrimSpace(line[:11]), 10, 64)
	if err != nil || epoch <= 0 {
		return Event{}, false
	}

	// A blank speed field is a suppressed (improbable) speed: the vehicle
	// still counts, with speed treated as unknown.
	speed := 0.0
	speedField := strings.TrimSpace(line[speedColumn : speedColumn+speedWidth])
	if speedField != "" {
		speed, err = strconv.ParseFloat(speedField, 64)
		if err != nil {
			return Event{}, false
		}
	}

	return Event{
		Stamp:    time.Unix(epoch, 0),
		SpeedMPH: speed,
		Up:       line[directionColumn] == 'U',
	}, true
}

// ReadAll parses every well-formed line of an event log, skipping the
// rest.
func ReadAll(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var events []Event
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ev, ok := ParseLine(line)
		if !ok {
			monitoring.Debugf("event log line %d: malformed record skipped", i+1)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Label derives the report label from an event-log filename. Logs are
// named `carcount.log.<date>`, so the date substring always starts at the
// same offset.
const labelOffset = len("carcount.log.")

func Label(path string) string {
	name := filepath.Base(path)
	if len(name) > labelOffset {
		return name[labelOffset:]
	}
	return name
}
