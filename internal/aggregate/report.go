package aggregate

import (
	"fmt"
	"io"
)

// WriteText renders the day report in the counter's traditional grid: one
// row per direction, a column per quarter hour between 06:00 and 22:00,
// with the night hours collapsed at either end.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", r.Label, r.Weekday); err != nil {
		return err
	}

	rows := []struct {
		name  string
		early int
		late  int
		total int
		pick  func(Bin) int
	}{
		{"Up:", r.Early.Up, r.Late.Up, r.Total.Up, func(b Bin) int { return b.Up }},
		{"Dn:", r.Early.Down, r.Late.Down, r.Total.Down, func(b Bin) int { return b.Down }},
		{"   ", r.Early.Total(), r.Late.Total(), r.Total.Total(), Bin.Total},
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s %2d ", row.name, row.early); err != nil {
			return err
		}
		for i, b := range r.Quarters {
			hour := 6 + i/4
			if i%4 == 0 {
				if hour == 14 {
					if _, err := fmt.Fprint(w, "\n        "); err != nil {
						return err
					}
				}
				if _, err := fmt.Fprintf(w, "[%02d:00] ", hour); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%2d ", row.pick(b)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "[22:00] %2d : %4d\n", row.late, row.total); err != nil {
			return err
		}
	}

	// Day-level speed summary per direction and overall.
	overall := r.Total.UpSpeed
	overall.Merge(r.Total.DnSpeed)
	for _, s := range []struct {
		name  string
		stats SpeedStats
	}{
		{"up", r.Total.UpSpeed},
		{"down", r.Total.DnSpeed},
		{"all", overall},
	} {
		if s.stats.N == 0 {
			if _, err := fmt.Fprintf(w, "speed %-4s n/a\n", s.name); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "speed %-4s avg %5.1f mph  max %5.1f mph  (%d cars)\n",
			s.name, s.stats.Mean(), s.stats.Max, s.stats.N); err != nil {
			return err
		}
	}
	if r.P85Speed > 0 {
		if _, err := fmt.Fprintf(w, "speed p50 %5.1f mph  p85 %5.1f mph\n", r.P50Speed, r.P85Speed); err != nil {
			return err
		}
	}
	return nil
}
