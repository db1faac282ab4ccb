package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSchool(t *testing.T) {
	// Sunday 20:00 UTC is already Monday 04:00 at school.
	instant := time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC)

	local := ToSchool(instant)
	assert.Equal(t, time.March, local.Month())
	assert.Equal(t, 10, local.Day())
	assert.Equal(t, 4, local.Hour())
}

func TestStartOfDay(t *testing.T) {
	instant := time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC)

	start := StartOfDay(instant)
	assert.Equal(t, Date(2025, 3, 10), start)
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2025-03-05")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 3, 5), parsed)

	_, err = ParseDate("05.03.2025")
	assert.Error(t, err)
}

func TestFormatDateStr(t *testing.T) {
	// Formatting follows the school's civil date, not the instant's zone.
	instant := time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-10", FormatDateStr(instant))
}

func TestSetLocation(t *testing.T) {
	original := SchoolTZ
	defer SetLocation(original)

	SetLocation(time.FixedZone("UTC-5", -5*60*60))

	instant := time.Date(2025, time.March, 10, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 9, ToSchool(instant).Day())

	// A nil location keeps the current zone.
	SetLocation(nil)
	assert.Equal(t, 9, ToSchool(instant).Day())
}
