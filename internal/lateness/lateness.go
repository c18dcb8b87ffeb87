// Package lateness computes how many minutes a check-in is past the daily cutoff.
package lateness

import (
	"fmt"
	"time"
)

// Cutoff is a time of day in the site time zone.
type Cutoff struct {
	Hour   int
	Minute int
}

// ParseCutoff parses "HH:MM" (24h clock).
func ParseCutoff(v string) (Cutoff, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return Cutoff{}, fmt.Errorf("invalid cutoff %q: %w", v, err)
	}
	return Cutoff{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the cutoff instant on the calendar day of t as observed in loc.
func (c Cutoff) On(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// Compute returns whole minutes between the cutoff and submittedAt, floored,
// never negative.
func Compute(submittedAt time.Time, cutoff Cutoff, loc *time.Location) int {
	late := submittedAt.Sub(cutoff.On(submittedAt, loc))
	if late <= 0 {
		return 0
	}
	return int(late / time.Minute)
}
