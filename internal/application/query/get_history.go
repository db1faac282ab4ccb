// Package query contains read operations following CQRS pattern.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET HISTORY QUERY
// Raw score event history, newest first. This view is roster-agnostic on
// purpose: events for classes that later fell off the roster stay visible
// here even though they no longer appear in the scoring form.
// ══════════════════════════════════════════════════════════════════════════════

// ErrNegativeLimit is returned for a negative history page size.
var ErrNegativeLimit = errors.New("query: limit cannot be negative")

// DefaultHistoryLimit bounds an unlimited history request.
const DefaultHistoryLimit = 200

// GetHistoryQuery selects a slice of the event history.
type GetHistoryQuery struct {
	// Limit caps the number of returned records. Zero applies
	// DefaultHistoryLimit.
	Limit int

	// Week optionally restricts the history to one week identifier.
	Week string
}

// Validate validates and normalizes the query.
func (q *GetHistoryQuery) Validate() error {
	if q.Limit < 0 {
		return ErrNegativeLimit
	}
	if q.Limit == 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Week != "" {
		if _, err := weekcal.Parse(q.Week); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRecordDTO is one history row.
type HistoryRecordDTO struct {
	Key       string    `json:"key"`
	Date      string    `json:"date"`
	Week      string    `json:"week"`
	Period    string    `json:"period"`
	ClassID   string    `json:"classId"`
	Grade     int       `json:"grade"`
	Score     int       `json:"score"`
	Note      string    `json:"note,omitempty"`
	RaterUID  string    `json:"raterUid"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetHistoryResult contains the requested history slice.
type GetHistoryResult struct {
	// Records is the history slice, most recently created first.
	Records []HistoryRecordDTO `json:"records"`

	// TotalCount is the size of the full (optionally week-filtered)
	// history, before Limit.
	TotalCount int `json:"totalCount"`
}

// GetHistoryHandler handles the GetHistoryQuery.
type GetHistoryHandler struct {
	snapshots SnapshotSource
}

// NewGetHistoryHandler creates a new GetHistoryHandler.
func NewGetHistoryHandler(snapshots SnapshotSource) *GetHistoryHandler {
	return &GetHistoryHandler{snapshots: snapshots}
}

// Handle slices the current snapshot. The snapshot is already ordered by
// creation time descending, so no re-sort happens here.
func (h *GetHistoryHandler) Handle(_ context.Context, q GetHistoryQuery) (*GetHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var matching []*scoring.ScoreEvent
	for _, event := range h.snapshots.Events() {
		if q.Week != "" && string(event.Week) != q.Week {
			continue
		}
		matching = append(matching, event)
	}

	limit := q.Limit
	if limit > len(matching) {
		limit = len(matching)
	}

	records := make([]HistoryRecordDTO, 0, limit)
	for _, event := range matching[:limit] {
		records = append(records, HistoryRecordDTO{
			Key:       event.Key.String(),
			Date:      timeutil.FormatDateStr(event.Date),
			Week:      event.Week.String(),
			Period:    event.Period.String(),
			ClassID:   event.ClassID.String(),
			Grade:     int(event.Grade),
			Score:     int(event.Score),
			Note:      event.Note,
			RaterUID:  event.RaterUID,
			CreatedAt: event.CreatedAt,
		})
	}

	return &GetHistoryResult{
		Records:    records,
		TotalCount: len(matching),
	}, nil
}
