// Package calendar provides the pure date arithmetic the availability engine
// is built on: ISO day parsing, day-of-week indexing, occurrence-of-month
// computation for repeat-week rules, and inclusive date-range enumeration.
// All dates are normalized to midnight UTC.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayFormat is the ISO calendar-day layout used throughout the engine.
const DayFormat = "2006-01-02"

// ParseDay parses an ISO calendar day ("2006-01-02") into a midnight-UTC time.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

// FormatDay renders a time as an ISO calendar day.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// Midnight truncates a time to midnight UTC.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayOfWeek returns the weekday index for a date: 0=Sunday .. 6=Saturday.
func DayOfWeek(t time.Time) int {
	return int(t.UTC().Weekday())
}

// OccurrenceOfMonth returns which occurrence of its weekday a date is within
// its month: 1 for days 1-7, 2 for 8-14, up to 5 for 29-31.
func OccurrenceOfMonth(t time.Time) int {
	return (t.UTC().Day()-1)/7 + 1
}

// DaysBetween returns the inclusive count of calendar days from start to end.
// Both bounds are truncated to midnight first. Returns 0 if end precedes start.
func DaysBetween(start, end time.Time) int {
	start, end = Midnight(start), Midnight(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// EnumerateDays returns every calendar day from start to end inclusive.
// An inverted range yields nil.
func EnumerateDays(start, end time.Time) []time.Time {
	start, end = Midnight(start), Midnight(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

// ParseClock parses a wall-clock time "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
