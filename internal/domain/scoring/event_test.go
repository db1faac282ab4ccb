package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

func TestClassID_Grade(t *testing.T) {
	tests := []struct {
		classID ClassID
		grade   Grade
		valid   bool
	}{
		{"101", 1, true},
		{"104", 1, true},
		{"205", 2, true},
		{"311", 3, true},
		{"1203", 12, true}, // multi-digit grade prefix
		{"", 0, false},
		{"1", 0, false},
		{"10", 0, false},
		{"x01", 0, false},
		{"1ab", 0, false},
		{"001", 0, false}, // grade 0 is not a grade
	}

	for _, tt := range tests {
		grade, err := tt.classID.Grade()
		if tt.valid {
			require.NoError(t, err, "class %q", tt.classID)
			assert.Equal(t, tt.grade, grade, "class %q", tt.classID)
			assert.True(t, tt.classID.BelongsToGrade(tt.grade))
		} else {
			assert.ErrorIs(t, err, ErrInvalidClassID, "class %q", tt.classID)
			assert.False(t, tt.classID.IsValid())
		}
	}
}

func TestNewScoreEvent(t *testing.T) {
	date := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	event, err := NewScoreEvent(date, "lunch-rest", "205", -2, "  talking during rest  ", "rater-1")
	require.NoError(t, err)

	assert.Equal(t, weekcal.WeekID("2025-W10"), event.Week)
	assert.Equal(t, Grade(2), event.Grade)
	assert.Equal(t, ClassID("205"), event.ClassID)
	assert.Equal(t, Score(-2), event.Score)
	assert.Equal(t, "talking during rest", event.Note)
	assert.Equal(t, "rater-1", event.RaterUID)
	assert.False(t, event.IsPersisted())
}

func TestNewScoreEvent_WeekNeverDriftsFromDate(t *testing.T) {
	// The year-boundary date that trips naive week math: stored week must be
	// exactly what the calendar derives.
	date := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

	event, err := NewScoreEvent(date, "assembly", "101", 3, "", "rater-1")
	require.NoError(t, err)

	derived, err := weekcal.WeekOf(event.Date)
	require.NoError(t, err)
	assert.Equal(t, derived, event.Week)
	assert.Equal(t, weekcal.WeekID("2025-W01"), event.Week)
}

func TestNewScoreEvent_Validation(t *testing.T) {
	date := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	_, err := NewScoreEvent(date, "  ", "101", 1, "", "rater-1")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = NewScoreEvent(date, "assembly", "bad", 1, "", "rater-1")
	assert.ErrorIs(t, err, ErrInvalidClassID)

	_, err = NewScoreEvent(time.Time{}, "assembly", "101", 1, "", "rater-1")
	assert.ErrorIs(t, err, weekcal.ErrInvalidDate)
}

func TestScore_String(t *testing.T) {
	assert.Equal(t, "+3", Score(3).String())
	assert.Equal(t, "-1", Score(-1).String())
	assert.Equal(t, "0", Score(0).String())
}
