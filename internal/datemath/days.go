package datemath

import (
	"fmt"
	"time"
)

// DateLayout is the civil-date format accepted on every external surface.
const DateLayout = "2006-01-02"

// MonthLayout identifies a calendar month (snapshot keys).
const MonthLayout = "2006-01"

// DaysPerMonth is the fixed month length used by duration projections.
const DaysPerMonth = 30

const day = 24 * time.Hour

// Day reduces t to midnight UTC of its civil date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from one civil date to
// another. The result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)) / day)
}

// DaysUntil is DaysBetween(now, target).
func DaysUntil(now, target time.Time) int {
	return DaysBetween(now, target)
}

// DaysSince is DaysBetween(since, now).
func DaysSince(since, now time.Time) int {
	return DaysBetween(since, now)
}

// Midpoint returns the instant exactly halfway between a and b by elapsed
// duration.
func Midpoint(a, b time.Time) time.Time {
	return a.Add(b.Sub(a) / 2)
}

// CeilMonths converts a day count into whole projection months, rounding
// up. Non-positive spans yield zero.
func CeilMonths(days int) int {
	if days <= 0 {
		return 0
	}
	return (days + DaysPerMonth - 1) / DaysPerMonth
}

// FloorMonths converts a day count into completed projection months.
func FloorMonths(days int) int {
	if days <= 0 {
		return 0
	}
	return days / DaysPerMonth
}

// MonthStart returns the first day of t's calendar month at midnight UTC.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t's calendar month as YYYY-MM.
func MonthKey(t time.Time) string {
	return MonthStart(t).Format(MonthLayout)
}

// ParseDate parses a YYYY-MM-DD civil date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM month key into the first of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return t, nil
}

// MustDate is ParseDate that panics on malformed input.
// Use only in tests or with literal dates.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
