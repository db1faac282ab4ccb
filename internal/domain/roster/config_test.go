package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
)

func TestClassIDsForGrade(t *testing.T) {
	counts := ClassCounts{1: 4, 2: 5, 3: 5}

	assert.Equal(t,
		[]scoring.ClassID{"101", "102", "103", "104"},
		ClassIDsForGrade(1, counts))

	assert.Equal(t,
		[]scoring.ClassID{"201", "202", "203", "204", "205"},
		ClassIDsForGrade(2, counts))
}

func TestClassIDsForGrade_ZeroCountIsEmptyNotError(t *testing.T) {
	ids := ClassIDsForGrade(4, ClassCounts{1: 4})
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestClassIDsForGrade_ShrinkHidesClasses(t *testing.T) {
	// Grade 1 reduced from 4 to 2: only the remaining classes are active.
	// Historical events for "103"/"104" are untouched by the roster; that
	// is the aggregation layer's concern.
	ids := ClassIDsForGrade(1, ClassCounts{1: 2})
	assert.Equal(t, []scoring.ClassID{"101", "102"}, ids)
}

func TestAllClassIDs(t *testing.T) {
	counts := ClassCounts{1: 2, 2: 1, 3: 1}

	ids := AllClassIDs([]scoring.Grade{3, 1, 2}, counts)
	assert.Equal(t, []scoring.ClassID{"101", "102", "201", "301"}, ids)
}

func TestClassCounts_Validate(t *testing.T) {
	assert.NoError(t, DefaultClassCounts().Validate())
	assert.NoError(t, ClassCounts{1: MinClassCount, 3: MaxClassCount}.Validate())

	assert.ErrorIs(t, ClassCounts{1: 0}.Validate(), ErrClassCountRange)
	assert.ErrorIs(t, ClassCounts{2: 21}.Validate(), ErrClassCountRange)
	assert.ErrorIs(t, ClassCounts{7: 3}.Validate(), ErrUnknownGrade)
}

func TestClassCounts_Clone(t *testing.T) {
	current := DefaultClassCounts()
	draft := current.Clone()
	draft[1] = 9

	assert.Equal(t, 4, current.Count(1))
	assert.Equal(t, 9, draft.Count(1))
}
