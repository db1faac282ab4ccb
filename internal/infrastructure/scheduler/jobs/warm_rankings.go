package jobs

import (
	"context"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/application/query"
	"github.com/JohnHuang626/school-score-app/internal/domain/leaderboard"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// WarmRankings precomputes the current-week leaderboard into the ranking
// cache so the first read after a snapshot change hits the cache instead of
// scanning the event log. Purely an optimization; queries compute the same
// result on a miss.
type WarmRankings struct {
	snapshots query.SnapshotSource
	cache     query.RankingCache
	timeout   time.Duration
	now       func() time.Time
}

// NewWarmRankings creates the cache warm job. A zero timeout defaults to
// 10 seconds per run.
func NewWarmRankings(snapshots query.SnapshotSource, cache query.RankingCache, timeout time.Duration) *WarmRankings {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WarmRankings{
		snapshots: snapshots,
		cache:     cache,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Name returns the unique name of the job.
func (j *WarmRankings) Name() string {
	return "warm-rankings"
}

// Description returns a human-readable description of the job.
func (j *WarmRankings) Description() string {
	return "Precompute the current-week leaderboard into the ranking cache"
}

// Run executes one warm pass.
func (j *WarmRankings) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	// Warm the school's current week, not the server clock's.
	week, err := weekcal.WeekOf(timeutil.ToSchool(j.now()))
	if err != nil {
		return err
	}

	version := j.snapshots.Version()
	if _, ok := j.cache.GetRankings(ctx, week, version); ok {
		return nil
	}

	totals := leaderboard.WeeklyTotals(j.snapshots.Events(), week, roster.Grades, j.snapshots.Counts())
	j.cache.SetRankings(ctx, week, version, leaderboard.RankAll(totals, roster.Grades))
	return nil
}
