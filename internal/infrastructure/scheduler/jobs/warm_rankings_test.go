package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnHuang626/school-score-app/internal/domain/leaderboard"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

type stubSnapshots struct {
	events  []*scoring.ScoreEvent
	counts  roster.ClassCounts
	version uint64
}

func (s *stubSnapshots) Events() []*scoring.ScoreEvent { return s.events }
func (s *stubSnapshots) Counts() roster.ClassCounts    { return s.counts }
func (s *stubSnapshots) Version() uint64               { return s.version }

type stubRankingCache struct {
	week    weekcal.WeekID
	version uint64
	stored  map[scoring.Grade][]leaderboard.Entry
	sets    int
}

func (c *stubRankingCache) GetRankings(_ context.Context, week weekcal.WeekID, version uint64) (map[scoring.Grade][]leaderboard.Entry, bool) {
	if c.stored != nil && week == c.week && version == c.version {
		return c.stored, true
	}
	return nil, false
}

func (c *stubRankingCache) SetRankings(_ context.Context, week weekcal.WeekID, version uint64, rankings map[scoring.Grade][]leaderboard.Entry) {
	c.week, c.version, c.stored = week, version, rankings
	c.sets++
}

func TestWarmRankings_WarmsSchoolWeek(t *testing.T) {
	event, err := scoring.NewScoreEvent(timeutil.Date(2025, 3, 10), "assembly", "101", 2, "", "rater-1")
	require.NoError(t, err)
	event.Key = "key-1"

	snapshots := &stubSnapshots{
		events:  []*scoring.ScoreEvent{event},
		counts:  roster.DefaultClassCounts(),
		version: 7,
	}
	cache := &stubRankingCache{}

	job := NewWarmRankings(snapshots, cache, 0)
	// Sunday 20:00 UTC is already Monday 04:00 at school, one ISO week later.
	job.now = func() time.Time { return time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, weekcal.WeekID("2025-W11"), cache.week)
	assert.Equal(t, uint64(7), cache.version)
	require.NotNil(t, cache.stored)
	assert.Equal(t, leaderboard.Entry{ClassID: "101", Total: 2}, cache.stored[1][0])

	// A second pass over the same snapshot finds the cache warm and skips the write.
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, cache.sets)
}
