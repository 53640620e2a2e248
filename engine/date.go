package engine

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity time abstraction
// =============================================================================
// Allocations, projects, and phasing periods are all day-granular. Date
// normalizes to midnight UTC so comparisons never depend on wall-clock noise.

type Date struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a wire-format ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Weekday() time.Weekday { return d.normalize().Weekday() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Date) IsWorkday() bool { return !d.IsWeekend() }
func (d Date) IsZero() bool    { return d.Time.IsZero() }

func (d Date) String() string { return d.normalize().Format(DateLayout) }

// StartOfMonth truncates to the first day of the month. Phasing periods are
// stored this way so equal buckets compare equal.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Time.Year(), d.Time.Month(), 1)
}

// =============================================================================
// WORKING CALENDAR
// =============================================================================

// WorkingDays counts Monday-Friday calendar days in [start, end] inclusive.
// Weekends are excluded; there is no holiday calendar. A same-day range on a
// weekday yields 1. Returns 0 when start is after end.
func WorkingDays(start, end Date) int {
	if start.After(end) {
		return 0
	}
	days := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWorkday() {
			days++
		}
	}
	return days
}

// RangesOverlap reports whether two inclusive date ranges intersect:
// aStart <= bEnd AND aEnd >= bStart.
func RangesOverlap(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.BeforeOrEqual(bEnd) && aEnd.AfterOrEqual(bStart)
}
