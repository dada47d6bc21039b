package units

import (
	"fmt"
	"time"
)

// IsTimezoneValid checks the given timezone name against the system tz
// database.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// LoadTimezone resolves a timezone name to a location. An empty name means
// the process-local timezone: the counter bins a day at the road's local
// midnight, not UTC.
func LoadTimezone(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}
	return loc, nil
}
