package aggregate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/tubecount/internal/eventlog"
)

func at(t *testing.T, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", clock, time.UTC)
	if err != nil {
		t.Fatalf("bad test time %q: %v", clock, err)
	}
	return ts
}

func TestCoalesceAveragesAgreeingSpeeds(t *testing.T) {
	// S5: two same-direction events 2 s apart with close speeds are one
	// car at the mean speed.
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:02"), SpeedMPH: 13.0, Up: true},
	}, time.UTC)

	bin := day.Bins[10*4]
	if bin.Up != 1 {
		t.Fatalf("up count = %d, want 1", bin.Up)
	}
	if bin.UpSpeed.N != 1 || bin.UpSpeed.Sum != 12.5 {
		t.Errorf("speed stats = %+v, want one sample at 12.5", bin.UpSpeed)
	}
}

func TestCoalesceDisagreeingSpeedsExcluded(t *testing.T) {
	// S5 second half: wildly different speeds merge to an unusable 0.
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:02"), SpeedMPH: 20.0, Up: true},
	}, time.UTC)

	bin := day.Bins[10*4]
	if bin.Up != 1 {
		t.Fatalf("up count = %d, want 1", bin.Up)
	}
	if bin.UpSpeed.N != 0 {
		t.Errorf("speed stats = %+v, want empty", bin.UpSpeed)
	}
}

func TestCoalesceRequiresSameDirection(t *testing.T) {
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:02"), SpeedMPH: 13.0, Up: false},
	}, time.UTC)

	bin := day.Bins[10*4]
	if bin.Up != 1 || bin.Down != 1 {
		t.Errorf("counts = %d up %d down, want 1 and 1", bin.Up, bin.Down)
	}
}

func TestCoalesceWindowBoundary(t *testing.T) {
	// Exactly 3 s apart still coalesces; 4 s does not.
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:03"), SpeedMPH: 13.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:10"), SpeedMPH: 14.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:14"), SpeedMPH: 15.0, Up: true},
	}, time.UTC)

	bin := day.Bins[10*4]
	if bin.Up != 3 {
		t.Errorf("up count = %d, want 3 (first pair coalesced, second not)", bin.Up)
	}
}

func TestCoalesceInsensitiveToSameSecondReordering(t *testing.T) {
	a := []eventlog.Event{
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 13.0, Up: true},
	}
	b := []eventlog.Event{a[1], a[0]}

	dayA := Aggregate(a, time.UTC)
	dayB := Aggregate(b, time.UTC)

	if diff := cmp.Diff(dayA.Bins, dayB.Bins); diff != "" {
		t.Errorf("reordered coalescable pair changed the bins (-a +b):\n%s", diff)
	}
}

func TestBinning(t *testing.T) {
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 00:10:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 06:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 06:14:59"), SpeedMPH: 0, Up: false},
		{Stamp: at(t, "2018-01-25 06:15:03"), SpeedMPH: 12.0, Up: false},
		{Stamp: at(t, "2018-01-25 23:59:59"), SpeedMPH: 12.0, Up: true},
	}, time.UTC)

	if got := day.Bins[0].Up; got != 1 {
		t.Errorf("bin 0 up = %d, want 1", got)
	}
	if got := day.Bins[6*4].Total(); got != 2 {
		t.Errorf("bin 24 total = %d, want 2", got)
	}
	if got := day.Bins[6*4+1].Down; got != 1 {
		t.Errorf("bin 25 down = %d, want 1", got)
	}
	if got := day.Bins[BinsPerDay-1].Up; got != 1 {
		t.Errorf("last bin up = %d, want 1", got)
	}
}

func TestSpeedBandIsExclusive(t *testing.T) {
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 10:00:00"), SpeedMPH: 5.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:05:00"), SpeedMPH: 5.1, Up: true},
		{Stamp: at(t, "2018-01-25 10:10:00"), SpeedMPH: 29.9, Up: true},
		{Stamp: at(t, "2018-01-25 10:15:00"), SpeedMPH: 30.0, Up: true},
		{Stamp: at(t, "2018-01-25 10:20:00"), SpeedMPH: 0, Up: true},
	}, time.UTC)

	var stats SpeedStats
	for _, b := range day.Bins {
		stats.Merge(b.UpSpeed)
	}
	if stats.N != 2 {
		t.Fatalf("in-band samples = %d, want 2 (5.0 and 30.0 excluded)", stats.N)
	}
	if stats.Min != 5.1 || stats.Max != 29.9 {
		t.Errorf("min/max = %v/%v, want 5.1/29.9", stats.Min, stats.Max)
	}
}

func TestReportCollapsesNightBins(t *testing.T) {
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 00:30:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 05:59:00"), SpeedMPH: 12.0, Up: false},
		{Stamp: at(t, "2018-01-25 12:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 22:30:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 23:30:00"), SpeedMPH: 12.0, Up: false},
	}, time.UTC)

	r := day.Report("2018-01-25")
	if r.Early.Up != 1 || r.Early.Down != 1 {
		t.Errorf("early bin = %d up %d down, want 1 and 1", r.Early.Up, r.Early.Down)
	}
	if r.Late.Up != 1 || r.Late.Down != 1 {
		t.Errorf("late bin = %d up %d down, want 1 and 1", r.Late.Up, r.Late.Down)
	}
	if len(r.Quarters) != 64 {
		t.Errorf("quarters = %d, want 64", len(r.Quarters))
	}
	if r.Total.Up != 3 || r.Total.Down != 2 {
		t.Errorf("totals = %d up %d down, want 3 and 2", r.Total.Up, r.Total.Down)
	}
	if r.Weekday != time.Thursday {
		t.Errorf("weekday = %v, want Thursday", r.Weekday)
	}
}

func TestPercentiles(t *testing.T) {
	var events []eventlog.Event
	for i := 0; i < 20; i++ {
		events = append(events, eventlog.Event{
			Stamp:    at(t, "2018-01-25 12:00:00").Add(time.Duration(i) * time.Minute),
			SpeedMPH: 10 + float64(i),
			Up:       i%2 == 0,
		})
	}
	day := Aggregate(events, time.UTC)

	p50, p85 := day.Percentiles()
	if p50 < 18 || p50 > 21 {
		t.Errorf("p50 = %v, want near 19.5", p50)
	}
	if p85 < p50 || p85 > 29 {
		t.Errorf("p85 = %v, want above p50 and below max", p85)
	}
}

func TestWriteTextShape(t *testing.T) {
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 07:00:00"), SpeedMPH: 12.0, Up: true},
		{Stamp: at(t, "2018-01-25 15:00:00"), SpeedMPH: 14.0, Up: false},
	}, time.UTC)

	var buf bytes.Buffer
	if err := day.Report("2018-01-25").WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "2018-01-25 Thursday") {
		t.Errorf("header = %q", strings.SplitN(out, "\n", 2)[0])
	}
	for _, want := range []string{"Up:", "Dn:", "[06:00]", "[14:00]", "[22:00]", "speed up", "speed all"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderChartProducesHTML(t *testing.T) {
	day := Aggregate([]eventlog.Event{
		{Stamp: at(t, "2018-01-25 12:00:00"), SpeedMPH: 12.0, Up: true},
	}, time.UTC)

	var buf bytes.Buffer
	if err := RenderChart(&buf, day, "2018-01-25"); err != nil {
		t.Fatalf("RenderChart: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<html") {
		t.Error("chart output is not an HTML page")
	}
	if !strings.Contains(out, "uphill") {
		t.Error("chart output missing series name")
	}
}
