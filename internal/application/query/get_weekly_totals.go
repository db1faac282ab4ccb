// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
//
// All queries run against the local full-replace snapshot of the event log
// and roster settings; nothing here talks to the store directly.
package query

import (
	"context"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/domain/leaderboard"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// SnapshotSource provides the current local projections that every query
// computes from. Implemented by the projection service; snapshots are
// replaced wholesale on every upstream change, never patched.
type SnapshotSource interface {
	// Events returns the current event snapshot, ordered by creation time
	// descending. Callers must not mutate the returned slice.
	Events() []*scoring.ScoreEvent

	// Counts returns the current class-count configuration.
	Counts() roster.ClassCounts

	// Version returns a counter that increases with every snapshot
	// replacement. Used to scope derived-value caches.
	Version() uint64
}

// ══════════════════════════════════════════════════════════════════════════════
// GET WEEKLY TOTALS QUERY
// Running per-class totals for the week containing a chosen scoring date.
// This backs the scoring form's live "this week so far" column.
// ══════════════════════════════════════════════════════════════════════════════

// GetWeeklyTotalsQuery selects the target week by scoring date.
type GetWeeklyTotalsQuery struct {
	// Date is the scoring date; its ISO week is the aggregation target.
	Date time.Time
}

// Validate validates the query.
func (q GetWeeklyTotalsQuery) Validate() error {
	if q.Date.IsZero() {
		return weekcal.ErrInvalidDate
	}
	return nil
}

// GetWeeklyTotalsResult contains the computed totals.
type GetWeeklyTotalsResult struct {
	// Week is the derived target week.
	Week weekcal.WeekID `json:"week"`

	// Totals maps every active class (plus any stale class with matching
	// events) to its signed total. Rostered classes without events carry an
	// explicit zero.
	Totals leaderboard.Totals `json:"totals"`
}

// GetWeeklyTotalsHandler handles the GetWeeklyTotalsQuery.
type GetWeeklyTotalsHandler struct {
	snapshots SnapshotSource
}

// NewGetWeeklyTotalsHandler creates a new GetWeeklyTotalsHandler.
func NewGetWeeklyTotalsHandler(snapshots SnapshotSource) *GetWeeklyTotalsHandler {
	return &GetWeeklyTotalsHandler{snapshots: snapshots}
}

// Handle derives the week from the date and folds the current snapshot.
func (h *GetWeeklyTotalsHandler) Handle(_ context.Context, q GetWeeklyTotalsQuery) (*GetWeeklyTotalsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	week, err := weekcal.WeekOf(q.Date)
	if err != nil {
		return nil, err
	}

	totals := leaderboard.WeeklyTotals(h.snapshots.Events(), week, roster.Grades, h.snapshots.Counts())

	return &GetWeeklyTotalsResult{Week: week, Totals: totals}, nil
}
