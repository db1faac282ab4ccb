package query

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnHuang626/school-score-app/internal/domain/leaderboard"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// fakeSnapshots is an in-memory SnapshotSource.
type fakeSnapshots struct {
	events  []*scoring.ScoreEvent
	counts  roster.ClassCounts
	version uint64
}

func (s *fakeSnapshots) Events() []*scoring.ScoreEvent { return s.events }
func (s *fakeSnapshots) Counts() roster.ClassCounts    { return s.counts }
func (s *fakeSnapshots) Version() uint64               { return s.version }

func makeEvent(t *testing.T, key string, day time.Time, classID scoring.ClassID, score scoring.Score) *scoring.ScoreEvent {
	t.Helper()
	event, err := scoring.NewScoreEvent(day, "assembly", classID, score, "note", "rater-1")
	require.NoError(t, err)
	event.Key = scoring.EventKey(key)
	event.CreatedAt = day.Add(8 * time.Hour)
	return event
}

var (
	day1 = time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC) // 2025-W10
	day2 = time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
)

func snapshotsFixture(t *testing.T) *fakeSnapshots {
	t.Helper()
	return &fakeSnapshots{
		counts: roster.ClassCounts{1: 4, 2: 5, 3: 5},
		events: []*scoring.ScoreEvent{
			// newest first, like the store delivers them
			makeEvent(t, "d", day2, "101", 5),
			makeEvent(t, "c", day1, "102", 3),
			makeEvent(t, "b", day1, "101", -1),
			makeEvent(t, "a", day1, "101", 2),
		},
		version: 1,
	}
}

func TestGetWeeklyTotals(t *testing.T) {
	handler := NewGetWeeklyTotalsHandler(snapshotsFixture(t))

	result, err := handler.Handle(context.Background(), GetWeeklyTotalsQuery{Date: day1})
	require.NoError(t, err)

	assert.Equal(t, weekcal.WeekID("2025-W10"), result.Week)
	assert.Equal(t, 1, result.Totals["101"])
	assert.Equal(t, 3, result.Totals["102"])
	assert.Equal(t, 0, result.Totals["103"])
	assert.Equal(t, 0, result.Totals["104"])
	// Full roster across all grades carries explicit zeros.
	assert.Len(t, result.Totals, 14)
}

func TestGetWeeklyTotals_MissingDate(t *testing.T) {
	handler := NewGetWeeklyTotalsHandler(snapshotsFixture(t))

	_, err := handler.Handle(context.Background(), GetWeeklyTotalsQuery{})
	assert.ErrorIs(t, err, weekcal.ErrInvalidDate)
}

func TestGetLeaderboard(t *testing.T) {
	handler := NewGetLeaderboardHandler(snapshotsFixture(t), nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Week: "2025-W10"})
	require.NoError(t, err)

	assert.Equal(t, weekcal.WeekID("2025-W10"), result.Week)
	assert.Equal(t, weekcal.WeekID("2025-W09"), result.PrevWeek)
	assert.Equal(t, weekcal.WeekID("2025-W11"), result.NextWeek)

	require.Len(t, result.Boards, 3)
	grade1 := result.Boards[0]
	assert.Equal(t, scoring.Grade(1), grade1.Grade)
	assert.Equal(t, []leaderboard.Entry{
		{ClassID: "102", Total: 3},
		{ClassID: "101", Total: 1},
		{ClassID: "103", Total: 0},
		{ClassID: "104", Total: 0},
	}, grade1.Entries)
	assert.Equal(t, grade1.Entries[:2], grade1.Podium)
	assert.Equal(t, grade1.Entries[2:4], grade1.Contenders)

	// Grades without events rank their full roster at zero.
	grade3 := result.Boards[2]
	assert.Len(t, grade3.Entries, 5)
	sorted := sort.SliceIsSorted(grade3.Entries, func(i, j int) bool {
		return grade3.Entries[i].ClassID < grade3.Entries[j].ClassID
	})
	assert.True(t, sorted, "all-zero grade must order by ascending class ID")
}

func TestGetLeaderboard_DefaultsToCurrentWeek(t *testing.T) {
	handler := NewGetLeaderboardHandler(snapshotsFixture(t), nil)
	handler.now = func() time.Time { return day2 }

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.Equal(t, weekcal.WeekID("2025-W11"), result.Week)
	assert.Equal(t, 5, result.Boards[0].Entries[0].Total)
}

func TestGetLeaderboard_DefaultWeekUsesSchoolTime(t *testing.T) {
	handler := NewGetLeaderboardHandler(snapshotsFixture(t), nil)
	// Sunday 20:00 UTC is already Monday 04:00 at school, one ISO week later.
	handler.now = func() time.Time { return time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC) }

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.Equal(t, weekcal.WeekID("2025-W11"), result.Week)
}

func TestGetLeaderboard_InvalidWeek(t *testing.T) {
	handler := NewGetLeaderboardHandler(snapshotsFixture(t), nil)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Week: "2025-13"})
	assert.ErrorIs(t, err, weekcal.ErrInvalidWeekID)
}

// fakeRankingCache records cache traffic.
type fakeRankingCache struct {
	store map[string]map[scoring.Grade][]leaderboard.Entry
	hits  int
	sets  int
}

func cacheKey(week weekcal.WeekID, version uint64) string {
	return fmt.Sprintf("%s@%d", week, version)
}

func (c *fakeRankingCache) GetRankings(_ context.Context, week weekcal.WeekID, version uint64) (map[scoring.Grade][]leaderboard.Entry, bool) {
	rankings, ok := c.store[cacheKey(week, version)]
	if ok {
		c.hits++
	}
	return rankings, ok
}

func (c *fakeRankingCache) SetRankings(_ context.Context, week weekcal.WeekID, version uint64, rankings map[scoring.Grade][]leaderboard.Entry) {
	if c.store == nil {
		c.store = map[string]map[scoring.Grade][]leaderboard.Entry{}
	}
	c.store[cacheKey(week, version)] = rankings
	c.sets++
}

func TestGetLeaderboard_CacheScopedToSnapshotVersion(t *testing.T) {
	snapshots := snapshotsFixture(t)
	cache := &fakeRankingCache{}
	handler := NewGetLeaderboardHandler(snapshots, cache)

	first, err := handler.Handle(context.Background(), GetLeaderboardQuery{Week: "2025-W10"})
	require.NoError(t, err)
	second, err := handler.Handle(context.Background(), GetLeaderboardQuery{Week: "2025-W10"})
	require.NoError(t, err)

	assert.Equal(t, first.Boards, second.Boards)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, cache.hits)

	// A new snapshot version bypasses the stale entry.
	snapshots.version = 2
	snapshots.events = snapshots.events[:1]
	third, err := handler.Handle(context.Background(), GetLeaderboardQuery{Week: "2025-W10"})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets)
	assert.NotEqual(t, first.Boards, third.Boards)
}

func TestGetHistory(t *testing.T) {
	handler := NewGetHistoryHandler(snapshotsFixture(t))

	result, err := handler.Handle(context.Background(), GetHistoryQuery{})
	require.NoError(t, err)

	require.Len(t, result.Records, 4)
	assert.Equal(t, 4, result.TotalCount)
	// Newest first, as pushed by the store.
	assert.Equal(t, "d", result.Records[0].Key)
	assert.Equal(t, "2025-W11", result.Records[0].Week)
	assert.Equal(t, "note", result.Records[0].Note)
}

func TestGetHistory_WeekFilterAndLimit(t *testing.T) {
	handler := NewGetHistoryHandler(snapshotsFixture(t))

	result, err := handler.Handle(context.Background(), GetHistoryQuery{Week: "2025-W10", Limit: 2})
	require.NoError(t, err)

	assert.Len(t, result.Records, 2)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, "c", result.Records[0].Key)
}

func TestGetHistory_Validation(t *testing.T) {
	handler := NewGetHistoryHandler(snapshotsFixture(t))

	_, err := handler.Handle(context.Background(), GetHistoryQuery{Limit: -1})
	assert.ErrorIs(t, err, ErrNegativeLimit)

	_, err = handler.Handle(context.Background(), GetHistoryQuery{Week: "garbage"})
	assert.ErrorIs(t, err, weekcal.ErrInvalidWeekID)
}
