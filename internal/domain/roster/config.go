// Package roster derives the live set of valid class identifiers from a
// mutable per-grade class-count configuration. Shrinking a grade's count
// hides classes from scoring input and from zero-initialized totals, but
// never touches their historical events.
// This is a pure domain layer with zero external dependencies.
package roster

import (
	"errors"
	"fmt"
	"sort"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
)

// Domain errors for the roster package.
var (
	ErrUnknownGrade      = errors.New("roster: unknown grade")
	ErrClassCountRange   = errors.New("roster: class count out of range")
	ErrSettingsNotFound  = errors.New("roster: settings record not found")
)

// Class count bounds enforced on administrative edits. A configured grade
// always has at least one class; the cap matches the settings UI.
const (
	MinClassCount = 1
	MaxClassCount = 20
)

// Grades is the fixed set of grades the school operates.
var Grades = []scoring.Grade{1, 2, 3}

// ClassCounts maps each grade to its number of classes. It is the single
// source of truth for which class IDs are active for scoring input and for
// zero-initializing weekly totals.
type ClassCounts map[scoring.Grade]int

// DefaultClassCounts returns the hardcoded initial configuration used until
// the settings record is first loaded.
func DefaultClassCounts() ClassCounts {
	return ClassCounts{1: 4, 2: 5, 3: 5}
}

// Count returns the class count for a grade, or zero when the grade is not
// configured. A zero count is an empty roster, not an error.
func (c ClassCounts) Count(grade scoring.Grade) int {
	return c[grade]
}

// Clone returns an independent copy, for draft edits that must not leak into
// the current configuration until saved.
func (c ClassCounts) Clone() ClassCounts {
	out := make(ClassCounts, len(c))
	for grade, count := range c {
		out[grade] = count
	}
	return out
}

// Validate checks an administrative candidate configuration: only known
// grades, every count within [MinClassCount, MaxClassCount].
func (c ClassCounts) Validate() error {
	for grade, count := range c {
		if !containsGrade(Grades, grade) {
			return fmt.Errorf("%w: %s", ErrUnknownGrade, grade)
		}
		if count < MinClassCount || count > MaxClassCount {
			return fmt.Errorf("%w: grade %s has %d classes", ErrClassCountRange, grade, count)
		}
	}
	return nil
}

// ClassIDsForGrade generates the ordered active class IDs for a grade:
// "<grade><NN>" with NN counting from 01. An unconfigured grade yields an
// empty slice.
func ClassIDsForGrade(grade scoring.Grade, counts ClassCounts) []scoring.ClassID {
	count := counts.Count(grade)
	ids := make([]scoring.ClassID, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, scoring.ClassID(fmt.Sprintf("%s%02d", grade, i)))
	}
	return ids
}

// AllClassIDs generates the active class IDs for every given grade, in grade
// order then sequence order.
func AllClassIDs(grades []scoring.Grade, counts ClassCounts) []scoring.ClassID {
	sorted := make([]scoring.Grade, len(grades))
	copy(sorted, grades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var ids []scoring.ClassID
	for _, grade := range sorted {
		ids = append(ids, ClassIDsForGrade(grade, counts)...)
	}
	return ids
}

func containsGrade(grades []scoring.Grade, g scoring.Grade) bool {
	for _, grade := range grades {
		if grade == g {
			return true
		}
	}
	return false
}
