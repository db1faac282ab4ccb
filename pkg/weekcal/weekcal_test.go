package weekcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestWeekOf_MidYear(t *testing.T) {
	// 2025-09-10 is a Wednesday in ISO week 37.
	w, err := WeekOf(date(2025, time.September, 10))
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W37"), w)
}

func TestWeekOf_WholeWeekSharesIdentifier(t *testing.T) {
	// Monday 2025-03-03 through Sunday 2025-03-09 are all week 10.
	for day := 3; day <= 9; day++ {
		w, err := WeekOf(date(2025, time.March, day))
		require.NoError(t, err)
		assert.Equal(t, WeekID("2025-W10"), w, "day %d", day)
	}

	// The surrounding Sunday and Monday belong to the adjacent weeks.
	before, err := WeekOf(date(2025, time.March, 2))
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W09"), before)

	after, err := WeekOf(date(2025, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W11"), after)
}

func TestWeekOf_YearBoundary(t *testing.T) {
	// Tuesday 2024-12-31 already belongs to ISO week 1 of 2025.
	w, err := WeekOf(date(2024, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W01"), w)

	// Sunday 2023-01-01 still belongs to ISO week 52 of 2022.
	w, err = WeekOf(date(2023, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, WeekID("2022-W52"), w)

	// 2020 is a 53-week year: Thursday 2020-12-31 is 2020-W53.
	w, err = WeekOf(date(2020, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, WeekID("2020-W53"), w)
}

func TestWeekOf_TimezoneIndependent(t *testing.T) {
	taipei := time.FixedZone("Asia/Taipei", 8*60*60)
	newYork := time.FixedZone("America/New_York", -5*60*60)

	// The same civil date in any zone yields the same identifier.
	local := time.Date(2024, time.December, 31, 23, 30, 0, 0, taipei)
	western := time.Date(2024, time.December, 31, 1, 15, 0, 0, newYork)

	w1, err := WeekOf(local)
	require.NoError(t, err)
	w2, err := WeekOf(western)
	require.NoError(t, err)
	assert.Equal(t, w1, w2)
	assert.Equal(t, WeekID("2025-W01"), w1)
}

func TestWeekOf_Stable(t *testing.T) {
	d := date(2025, time.June, 15)
	first, err := WeekOf(d)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := WeekOf(d)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestWeekOf_InvalidDate(t *testing.T) {
	_, err := WeekOf(time.Time{})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParse(t *testing.T) {
	w, err := Parse("2025-W07")
	require.NoError(t, err)
	assert.Equal(t, 2025, w.Year())
	assert.Equal(t, 7, w.Week())

	for _, bad := range []string{"", "2025", "2025-W0", "2025-W00", "2025-W54", "25-W07", "2025W07", "abcd-Wxy"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidWeekID, "input %q", bad)
	}
}

func TestNextPrev(t *testing.T) {
	next, err := WeekID("2025-W10").Next()
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W11"), next)

	prev, err := WeekID("2025-W10").Prev()
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W09"), prev)
}

func TestNextPrev_YearRollover(t *testing.T) {
	// 2020 has 53 ISO weeks; naive "week+1 wraps at 52" would skip W53.
	next, err := WeekID("2020-W52").Next()
	require.NoError(t, err)
	assert.Equal(t, WeekID("2020-W53"), next)

	next, err = WeekID("2020-W53").Next()
	require.NoError(t, err)
	assert.Equal(t, WeekID("2021-W01"), next)

	prev, err := WeekID("2021-W01").Prev()
	require.NoError(t, err)
	assert.Equal(t, WeekID("2020-W53"), prev)

	prev, err = WeekID("2022-W01").Prev()
	require.NoError(t, err)
	assert.Equal(t, WeekID("2021-W52"), prev)
}

func TestThursdayAnchor(t *testing.T) {
	thursday, err := WeekID("2025-W01").Thursday()
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 2), thursday)
	assert.Equal(t, time.Thursday, thursday.Weekday())

	// Round trip: the Thursday of any week maps back to that week.
	w, err := WeekOf(thursday)
	require.NoError(t, err)
	assert.Equal(t, WeekID("2025-W01"), w)
}
