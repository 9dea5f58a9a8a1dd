// Package businesstime provides the business clock: the local booking
// timezone and the night window outside which translators may be pushed.
package businesstime

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DefaultTimezone   = "Europe/Stockholm"
	DefaultNightStart = "22:00"
	DefaultNightEnd   = "07:00"
)

// Clock is safe for concurrent use.
type Clock struct {
	loc        *time.Location
	nightStart int // minutes after midnight
	nightEnd   int
	now        func() time.Time
}

// New builds a clock. Empty arguments fall back to the defaults.
func New(timezone, nightStart, nightEnd string) (*Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	if nightStart == "" {
		nightStart = DefaultNightStart
	}
	if nightEnd == "" {
		nightEnd = DefaultNightEnd
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	start, err := minuteOfDay(nightStart)
	if err != nil {
		return nil, err
	}
	end, err := minuteOfDay(nightEnd)
	if err != nil {
		return nil, err
	}

	return &Clock{loc: loc, nightStart: start, nightEnd: end, now: time.Now}, nil
}

// MustDefault returns the Stockholm clock with the 22:00-07:00 night window.
func MustDefault() *Clock {
	c, err := New("", "", "")
	if err != nil {
		panic(err)
	}
	return c
}

// WithNow returns a copy of the clock reading time from fn.
func (c *Clock) WithNow(fn func() time.Time) *Clock {
	cp := *c
	cp.now = fn
	return &cp
}

// At returns a copy of the clock frozen at t.
func (c *Clock) At(t time.Time) *Clock {
	return c.WithNow(func() time.Time { return t })
}

// Now returns the current time in the business timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the business timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// IsNightTime reports whether t falls in the night window.
func (c *Clock) IsNightTime(t time.Time) bool {
	local := t.In(c.loc)
	m := local.Hour()*60 + local.Minute()

	if c.nightStart > c.nightEnd {
		return m >= c.nightStart || m < c.nightEnd
	}
	return m >= c.nightStart && m < c.nightEnd
}

// NextBusinessTime returns t itself during business hours, otherwise the
// end of the current night window.
func (c *Clock) NextBusinessTime(t time.Time) time.Time {
	if !c.IsNightTime(t) {
		return t
	}

	local := t.In(c.loc)
	y, mo, d := local.Date()
	next := time.Date(y, mo, d, c.nightEnd/60, c.nightEnd%60, 0, 0, c.loc)
	if next.Before(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func minuteOfDay(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q (expected HH:MM): %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
