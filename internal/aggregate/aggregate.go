// Package aggregate turns one day's vehicle event log into 15-minute
// traffic volume and speed histograms.
package aggregate

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tubecount/internal/eventlog"
)

// BinsPerDay is the number of 15-minute intervals in a day.
const BinsPerDay = 24 * 4

const binWidth = 15 * time.Minute

// Coalescing and speed-band tuning. The counter wiring occasionally
// double-reports a vehicle; two same-direction events within the coalesce
// window are one car. Speed statistics only admit values inside the band:
// below it the pairing was probably two pedestrians or a bicycle, above it
// a misfire.
const (
	coalesceWindow = 3 * time.Second
	coalesceSpread = 5.0 // mph; beyond this the merged speed is unusable

	speedBandLow  = 5.0  // mph, exclusive
	speedBandHigh = 30.0 // mph, exclusive
)

// SpeedStats accumulates min/sum/max over in-band speed samples.
type SpeedStats struct {
	Min float64
	Sum float64
	Max float64
	N   int
}

// Add folds one in-band speed sample into the stats.
func (s *SpeedStats) Add(v float64) {
	if s.N == 0 || v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.N++
}

// Merge folds another stats value into this one.
func (s *SpeedStats) Merge(o SpeedStats) {
	if o.N == 0 {
		return
	}
	if s.N == 0 || o.Min < s.Min {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
	s.Sum += o.Sum
	s.N += o.N
}

// Mean returns sum/count, or 0 with no samples.
func (s SpeedStats) Mean() float64 {
	if s.N == 0 {
		return 0
	}
	return s.Sum / float64(s.N)
}

// Bin is one 15-minute interval of a day.
type Bin struct {
	Up      int
	Down    int
	UpSpeed SpeedStats
	DnSpeed SpeedStats
}

// Total returns the bin's combined vehicle count.
func (b Bin) Total() int { return b.Up + b.Down }

func (b *Bin) merge(o Bin) {
	b.Up += o.Up
	b.Down += o.Down
	b.UpSpeed.Merge(o.UpSpeed)
	b.DnSpeed.Merge(o.DnSpeed)
}

// Day is one day's aggregated traffic, frozen after the final event.
type Day struct {
	Start time.Time // local midnight
	Bins  [BinsPerDay]Bin

	// All usable (non-zero) speeds, kept for day-level percentiles.
	upSpeeds []float64
	dnSpeeds []float64
}

// Aggregator consumes a day's events in timestamp order, coalescing
// near-duplicates at ingest.
type Aggregator struct {
	loc     *time.Location
	day     *Day
	pending *eventlog.Event
}

// NewAggregator aggregates in the given timezone; the day boundary is
// local midnight of the first event.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{loc: loc}
}

// Add ingests the next event. Two consecutive events with the same
// direction within the coalesce window are one vehicle: it keeps the
// earlier stamp, and the mean speed when the two readings roughly agree —
// otherwise the speed is unusable and recorded as unknown.
func (a *Aggregator) Add(ev eventlog.Event) {
	if a.day == nil {
		y, m, d := ev.Stamp.In(a.loc).Date()
		a.day = &Day{Start: time.Date(y, m, d, 0, 0, 0, 0, a.loc)}
	}

	if a.pending != nil &&
		a.pending.Up == ev.Up &&
		!ev.Stamp.Before(a.pending.Stamp) &&
		ev.Stamp.Sub(a.pending.Stamp) <= coalesceWindow {
		merged := ev
		if math.Abs(ev.SpeedMPH-a.pending.SpeedMPH) < coalesceSpread {
			merged.SpeedMPH = (ev.SpeedMPH + a.pending.SpeedMPH) / 2
		} else {
			merged.SpeedMPH = 0
		}
		merged.Stamp = a.pending.Stamp
		a.commit(merged)
		a.pending = nil
		return
	}

	if a.pending != nil {
		a.commit(*a.pending)
	}
	a.pending = &ev
}

// Finish flushes the trailing event and freezes the day. It returns nil if
// no events were ever added.
func (a *Aggregator) Finish() *Day {
	if a.pending != nil {
		a.commit(*a.pending)
		a.pending = nil
	}
	day := a.day
	a.day = nil
	return day
}

func (a *Aggregator) commit(ev eventlog.Event) {
	idx := int(ev.Stamp.Sub(a.day.Start) / binWidth)
	if idx < 0 {
		idx = 0
	}
	if idx >= BinsPerDay {
		idx = BinsPerDay - 1
	}

	bin := &a.day.Bins[idx]
	inBand := ev.SpeedMPH > speedBandLow && ev.SpeedMPH < speedBandHigh
	if ev.Up {
		bin.Up++
		if inBand {
			bin.UpSpeed.Add(ev.SpeedMPH)
		}
	} else {
		bin.Down++
		if inBand {
			bin.DnSpeed.Add(ev.SpeedMPH)
		}
	}

	if ev.SpeedMPH > 0 {
		if ev.Up {
			a.day.upSpeeds = append(a.day.upSpeeds, ev.SpeedMPH)
		} else {
			a.day.dnSpeeds = append(a.day.dnSpeeds, ev.SpeedMPH)
		}
	}
}

// Percentiles returns the day's p50 and p85 speed across both directions,
// the traffic-engineering numbers a speed study reports.
func (d *Day) Percentiles() (p50, p85 float64) {
	all := make([]float64, 0, len(d.upSpeeds)+len(d.dnSpeeds))
	all = append(all, d.upSpeeds...)
	all = append(all, d.dnSpeeds...)
	if len(all) == 0 {
		return 0, 0
	}
	sort.Float64s(all)
	return stat.Quantile(0.5, stat.Empirical, all, nil),
		stat.Quantile(0.85, stat.Empirical, all, nil)
}

// Collapse boundaries for reporting: everything before 06:00 is one
// "early" bin and everything from 22:00 on is one "late" bin.
const (
	earlyBins = 6 * 4
	lateFrom  = 22 * 4
)

// Report is the frozen day summary.
type Report struct {
	Label   string
	Weekday time.Weekday
	Start   time.Time

	Early Bin
	Late  Bin
	// Quarters are the individually-reported bins covering [06:00, 22:00).
	Quarters []Bin

	Total Bin

	P50Speed float64
	P85Speed float64
}

// Report collapses the day's bins into the reporting shape.
func (d *Day) Report(label string) *Report {
	r := &Report{
		Label:    label,
		Weekday:  d.Start.Weekday(),
		Start:    d.Start,
		Quarters: make([]Bin, 0, lateFrom-earlyBins),
	}

	for i := 0; i < earlyBins; i++ {
		r.Early.merge(d.Bins[i])
	}
	for i := earlyBins; i < lateFrom; i++ {
		r.Quarters = append(r.Quarters, d.Bins[i])
	}
	for i := lateFrom; i < BinsPerDay; i++ {
		r.Late.merge(d.Bins[i])
	}

	r.Total.merge(r.Early)
	for _, b := range r.Quarters {
		r.Total.merge(b)
	}
	r.Total.merge(r.Late)

	r.P50Speed, r.P85Speed = d.Percentiles()
	return r
}

// Aggregate runs a full day's worth of events through a fresh aggregator.
func Aggregate(events []eventlog.Event, loc *time.Location) *Day {
	a := NewAggregator(loc)
	for _, ev := range events {
		a.Add(ev)
	}
	return a.Finish()
}
