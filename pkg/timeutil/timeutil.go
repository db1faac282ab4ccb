// Package timeutil provides timezone utilities for the school's local time
// (UTC+8 by default, configurable at startup). Score events carry civil
// dates, so every "today" and date-string conversion must happen in school
// time, never in server UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// SchoolTZ is the school's timezone. Defaults to UTC+8 (no DST); the
// composition root overrides it from configuration via SetLocation.
var SchoolTZ = time.FixedZone("Asia/Taipei", 8*60*60)

// SetLocation replaces the school timezone. Must be called once at startup,
// before any civil-date handling; it is not safe for concurrent use.
func SetLocation(loc *time.Location) {
	if loc != nil {
		SchoolTZ = loc
	}
}

// Now returns the current time in school timezone.
func Now() time.Time {
	return time.Now().In(SchoolTZ)
}

// ToSchool converts a time to school timezone.
func ToSchool(t time.Time) time.Time {
	return t.In(SchoolTZ)
}

// Date creates a time in school timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, SchoolTZ)
}

// StartOfDay returns the start of the day (00:00:00) in school timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToSchool(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, SchoolTZ)
}

// Today returns the start of the current school day.
func Today() time.Time {
	return StartOfDay(Now())
}

// FormatDate is the standard civil date format (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in school timezone.
func FormatDateStr(t time.Time) string {
	return ToSchool(t).Format(FormatDate)
}

// ParseDate parses a civil date string (YYYY-MM-DD) in school timezone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, SchoolTZ)
}
