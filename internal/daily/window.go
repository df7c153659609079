// Package daily decides which calendar day a journal record belongs to and derives the
// per-day timeline, period buckets and totals from an attributed record set.
package daily

import (
	"fmt"
	"strings"
	"time"

	"example.com/babylog/internal/domain"
)

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates the triple; out-of-range values are rejected rather than normalised.
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar day", domain.ErrInvalidWindow, year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// ParseDate reads a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidWindow, value, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf truncates an instant to the calendar day it falls on in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	local := t.In(locationOrLocal(loc))
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Window resolves the day against loc.
func (d Date) Window(loc *time.Location) Window {
	loc = locationOrLocal(loc)
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	next := time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: next.Add(-time.Millisecond)}
}

// Window spans one local calendar day, 00:00:00.000 through 23:59:59.999, both inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAt returns the window of the day containing t in loc.
func WindowAt(t time.Time, loc *time.Location) Window {
	return DateOf(t, loc).Window(loc)
}

// Contains reports whether t lies inside the closed interval [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Date returns the calendar day the window covers.
func (w Window) Date() Date {
	return DateOf(w.Start, w.Start.Location())
}

// Location is the zone the window was resolved in.
func (w Window) Location() *time.Location {
	return w.Start.Location()
}

func locationOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
