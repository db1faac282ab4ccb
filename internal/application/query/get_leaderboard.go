// Package query contains read operations following CQRS pattern.
package query

import (
	"context"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/domain/leaderboard"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Per-grade ranked leaderboard for any chosen week, with navigation to the
// adjacent weeks. Recomputed from the snapshot on every call; a short-lived
// cache keyed by snapshot version absorbs repeated reads of the same week.
// ══════════════════════════════════════════════════════════════════════════════

// RankingCache caches computed rankings per (week, snapshot version).
// A nil cache disables caching; the computation is a linear scan either way.
type RankingCache interface {
	// GetRankings returns the cached rankings for the key, if present.
	GetRankings(ctx context.Context, week weekcal.WeekID, version uint64) (map[scoring.Grade][]leaderboard.Entry, bool)

	// SetRankings stores rankings for the key.
	SetRankings(ctx context.Context, week weekcal.WeekID, version uint64, rankings map[scoring.Grade][]leaderboard.Entry)
}

// GetLeaderboardQuery selects the leaderboard week.
type GetLeaderboardQuery struct {
	// Week is the target week identifier. Empty selects the current week.
	Week string
}

// GradeBoardDTO is the rendered leaderboard of one grade.
type GradeBoardDTO struct {
	// Grade is the grade this board ranks.
	Grade scoring.Grade `json:"grade"`

	// Entries is the full ordering, best first.
	Entries []leaderboard.Entry `json:"entries"`

	// Podium is the 1st/2nd place slice of Entries.
	Podium []leaderboard.Entry `json:"podium"`

	// Contenders is positions 3-5 of Entries.
	Contenders []leaderboard.Entry `json:"contenders"`
}

// GetLeaderboardResult contains the per-grade boards for one week.
type GetLeaderboardResult struct {
	// Week is the resolved target week.
	Week weekcal.WeekID `json:"week"`

	// PrevWeek and NextWeek support leaderboard week navigation.
	PrevWeek weekcal.WeekID `json:"prevWeek"`
	NextWeek weekcal.WeekID `json:"nextWeek"`

	// Boards holds one board per grade, in grade order.
	Boards []GradeBoardDTO `json:"boards"`
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	snapshots SnapshotSource
	cache     RankingCache
	now       func() time.Time
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// cache may be nil.
func NewGetLeaderboardHandler(snapshots SnapshotSource, cache RankingCache) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		snapshots: snapshots,
		cache:     cache,
		now:       time.Now,
	}
}

// Handle resolves the target week and ranks every grade over it.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	week, err := h.resolveWeek(q.Week)
	if err != nil {
		return nil, err
	}

	prev, err := week.Prev()
	if err != nil {
		return nil, err
	}
	next, err := week.Next()
	if err != nil {
		return nil, err
	}

	version := h.snapshots.Version()
	rankings, ok := h.cachedRankings(ctx, week, version)
	if !ok {
		totals := leaderboard.WeeklyTotals(h.snapshots.Events(), week, roster.Grades, h.snapshots.Counts())
		rankings = leaderboard.RankAll(totals, roster.Grades)
		if h.cache != nil {
			h.cache.SetRankings(ctx, week, version, rankings)
		}
	}

	boards := make([]GradeBoardDTO, 0, len(roster.Grades))
	for _, grade := range roster.Grades {
		entries := rankings[grade]
		boards = append(boards, GradeBoardDTO{
			Grade:      grade,
			Entries:    entries,
			Podium:     leaderboard.Podium(entries),
			Contenders: leaderboard.Contenders(entries),
		})
	}

	return &GetLeaderboardResult{
		Week:     week,
		PrevWeek: prev,
		NextWeek: next,
		Boards:   boards,
	}, nil
}

func (h *GetLeaderboardHandler) resolveWeek(raw string) (weekcal.WeekID, error) {
	if raw == "" {
		// The current week is the school's current week, which near
		// midnight differs from the server clock's civil date.
		return weekcal.WeekOf(timeutil.ToSchool(h.now()))
	}
	return weekcal.Parse(raw)
}

func (h *GetLeaderboardHandler) cachedRankings(ctx context.Context, week weekcal.WeekID, version uint64) (map[scoring.Grade][]leaderboard.Entry, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.GetRankings(ctx, week, version)
}
