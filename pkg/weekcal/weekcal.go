// Package weekcal implements ISO-8601 week numbering for weekly score
// aggregation. A week identifier has the form "2025-W37": weeks start on
// Monday and week 1 is the week containing the first Thursday of the year,
// so the ISO year can differ from the calendar year near Dec 31/Jan 1.
// No external dependencies - uses only standard library.
package weekcal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidDate is returned when the input is missing or not a valid
	// calendar date.
	ErrInvalidDate = errors.New("weekcal: invalid date")

	// ErrInvalidWeekID is returned when a week identifier string does not
	// have the form "YYYY-Www".
	ErrInvalidWeekID = errors.New("weekcal: invalid week identifier")
)

// WeekID is an ISO-8601 week identifier, e.g. "2025-W37".
type WeekID string

// String returns the string representation of the week identifier.
func (w WeekID) String() string {
	return string(w)
}

// IsValid checks that the identifier has the expected form.
func (w WeekID) IsValid() bool {
	_, _, err := splitWeekID(string(w))
	return err == nil
}

// Year returns the ISO year of the identifier, or 0 if it is malformed.
func (w WeekID) Year() int {
	year, _, err := splitWeekID(string(w))
	if err != nil {
		return 0
	}
	return year
}

// Week returns the ISO week number of the identifier, or 0 if it is malformed.
func (w WeekID) Week() int {
	_, week, err := splitWeekID(string(w))
	if err != nil {
		return 0
	}
	return week
}

// WeekOf returns the ISO week identifier of the calendar date carried by t.
// Only the civil date (year, month, day) in t's location is significant;
// time-of-day and zone offset never change the result, so the same wall-clock
// date yields the same identifier in every timezone.
func WeekOf(t time.Time) (WeekID, error) {
	if t.IsZero() {
		return "", ErrInvalidDate
	}

	// Normalize to midnight UTC to eliminate DST and offset effects.
	year, month, day := t.Date()
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	// Shift to the Thursday of this date's week, counting Sunday as day 7.
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	d = d.AddDate(0, 0, 4-weekday)

	// The shifted date's year is the ISO year, and its day-of-year fixes
	// the week number: week = ceil(dayOfYear / 7).
	isoYear := d.Year()
	week := (d.YearDay() + 6) / 7

	return WeekID(fmt.Sprintf("%04d-W%02d", isoYear, week)), nil
}

// MustWeekOf is like WeekOf but panics on an invalid date.
// Intended for tests and compile-time-known dates.
func MustWeekOf(t time.Time) WeekID {
	w, err := WeekOf(t)
	if err != nil {
		panic(err)
	}
	return w
}

// Parse validates a week identifier string.
func Parse(s string) (WeekID, error) {
	if _, _, err := splitWeekID(s); err != nil {
		return "", err
	}
	return WeekID(s), nil
}

// Thursday returns the Thursday (midnight UTC) of the identified week.
// Every ISO week is uniquely addressed by its Thursday, which makes it the
// safe anchor for week arithmetic.
func (w WeekID) Thursday() (time.Time, error) {
	year, week, err := splitWeekID(string(w))
	if err != nil {
		return time.Time{}, err
	}

	// Jan 4 is always inside ISO week 1 of its year.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Thursday := jan4.AddDate(0, 0, 4-weekday)

	return week1Thursday.AddDate(0, 0, (week-1)*7), nil
}

// Next returns the identifier of the following ISO week.
// Week arithmetic goes through date math rather than incrementing the week
// number, so 53-week years roll over correctly.
func (w WeekID) Next() (WeekID, error) {
	thursday, err := w.Thursday()
	if err != nil {
		return "", err
	}
	return WeekOf(thursday.AddDate(0, 0, 7))
}

// Prev returns the identifier of the preceding ISO week.
func (w WeekID) Prev() (WeekID, error) {
	thursday, err := w.Thursday()
	if err != nil {
		return "", err
	}
	return WeekOf(thursday.AddDate(0, 0, -7))
}

// splitWeekID parses "YYYY-Www" into its year and week parts.
func splitWeekID(s string) (year, week int, err error) {
	parts := strings.SplitN(s, "-W", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, 0, ErrInvalidWeekID
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return 0, 0, ErrInvalidWeekID
	}

	week, err = strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return 0, 0, ErrInvalidWeekID
	}

	return year, week, nil
}
