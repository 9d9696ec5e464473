// Package clinictime pins calendar-day arithmetic to the clinic's wall
// clock. The "one check-in per day" boundary must not move with the
// caller's locale or UTC offset.
package clinictime

import "time"

// DateLayout is the calendar-day string stored on visits.
const DateLayout = "2006-01-02"

// Clock yields the clinic-local current day. The zero value is unusable;
// construct with New.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New resolves the named IANA zone. An unknown zone falls back to UTC
// rather than failing startup; the caller is expected to log the error.
func New(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return &Clock{loc: time.UTC, now: time.Now}, err
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixed returns a clock frozen at the given instant, for tests.
func NewFixed(at time.Time, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: func() time.Time { return at }}
}

// Today returns the clinic-local calendar day, e.g. "2026-08-31".
func (c *Clock) Today() string {
	return c.now().In(c.loc).Format(DateLayout)
}

// Now returns the current instant; storage stamps derive from this so the
// whole process shares one time source.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location exposes the clinic zone for formatting.
func (c *Clock) Location() *time.Location {
	return c.loc
}
