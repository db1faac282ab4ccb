// Package leaderboard reduces the score event log into per-class weekly
// totals and ranked per-grade leaderboards. Every function here is pure:
// given the same event snapshot, roster configuration and target week it
// always produces the same output, so results are recomputed on every
// upstream change instead of being stored.
package leaderboard

import (
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// Totals maps each class ID to its signed score total for one week.
//
// The key domain is the union of the current roster and the class IDs
// observed in matching events: every rostered class is present with an
// explicit zero even without events, and classes that fell off the roster
// after accumulating history still report their totals.
type Totals map[scoring.ClassID]int

// Sum returns the sum of all class totals. For a fixed week and roster this
// equals the sum of all matching event scores, which is the conservation
// property the tests pin down.
func (t Totals) Sum() int {
	sum := 0
	for _, total := range t {
		sum += total
	}
	return sum
}

// WeeklyTotals folds the event snapshot into per-class totals for one week.
//
// Events are matched by string equality on their stored week identifier.
// The identifier is never re-derived from the event date here: what was
// stored at write time is what groups the event, per the denormalization
// invariant on scoring.ScoreEvent.
//
// Summation is commutative, so the result is independent of event order,
// and two events with identical fields but distinct keys both count.
// Totals accumulate without bounds in either direction.
func WeeklyTotals(events []*scoring.ScoreEvent, targetWeek weekcal.WeekID, grades []scoring.Grade, counts roster.ClassCounts) Totals {
	totals := make(Totals)

	// Zero-initialize from the current roster so every active class shows
	// an explicit zero even with no events.
	for _, grade := range grades {
		for _, classID := range roster.ClassIDsForGrade(grade, counts) {
			totals[classID] = 0
		}
	}

	for _, event := range events {
		if event.Week != targetWeek {
			continue
		}
		// A class outside the current roster still gets its key: shrinking
		// the roster must not silently drop historical totals.
		totals[event.ClassID] += int(event.Score)
	}

	return totals
}
