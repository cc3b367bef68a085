package util

import (
	"math"
	"strconv"
	"time"
)

// DateLayout is the calendar date format embedded in artifact names.
const DateLayout = "2006-01-02"

// ordinalOfUnixEpoch is the proleptic Gregorian ordinal of 1970-01-01,
// counting 0001-01-01 as day 1.
const ordinalOfUnixEpoch = 719163

const secondsPerDay = 24 * 60 * 60

// ParseTime tries YYYY-MM-DD, RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDay renders the calendar date of t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// ToOrdinal returns the proleptic Gregorian ordinal of t's calendar date.
func ToOrdinal(t time.Time) int64 {
	return unixDays(Day(t)) + ordinalOfUnixEpoch
}

// FromOrdinal converts a Gregorian ordinal back to midnight UTC.
func FromOrdinal(ord int64) time.Time {
	return time.Unix((ord-ordinalOfUnixEpoch)*secondsPerDay, 0).UTC()
}

// FromFractionalOrdinal floors a fractional ordinal (as emitted by the fit
// engine for tc) to its calendar day.
func FromFractionalOrdinal(ord float64) time.Time {
	return FromOrdinal(int64(math.Floor(ord)))
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(unixDays(Day(b)) - unixDays(Day(a)))
}

func unixDays(t time.Time) int64 {
	secs := t.Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return days
}
