package redis

import (
	"context"
	"errors"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/domain/leaderboard"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RankingCache stores computed per-grade rankings keyed by week and snapshot
// version. The version component makes entries self-invalidating: any data
// change bumps the version, so old entries are never read again and simply
// expire.
//
// The cache is purely an accelerator. Every failure path degrades to a miss
// and the caller recomputes from the snapshot.
type RankingCache struct {
	cache *Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewRankingCache creates a new RankingCache. A zero ttl uses the default.
func NewRankingCache(cache *Cache, ttl time.Duration, log *logger.Logger) *RankingCache {
	if ttl <= 0 {
		ttl = TTLRankingCache
	}
	return &RankingCache{cache: cache, ttl: ttl, log: log}
}

// GetRankings returns the cached rankings for the key, if present.
func (c *RankingCache) GetRankings(ctx context.Context, week weekcal.WeekID, version uint64) (map[scoring.Grade][]leaderboard.Entry, bool) {
	var rankings map[scoring.Grade][]leaderboard.Entry
	err := c.cache.Get(ctx, RankingsKey(week.String(), version), &rankings)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("ranking cache read failed",
				logger.Week(week.String()),
				logger.Err(err),
			)
		}
		return nil, false
	}
	return rankings, true
}

// SetRankings stores rankings for the key. Write failures are logged and
// swallowed; the next read recomputes.
func (c *RankingCache) SetRankings(ctx context.Context, week weekcal.WeekID, version uint64, rankings map[scoring.Grade][]leaderboard.Entry) {
	if err := c.cache.Set(ctx, RankingsKey(week.String(), version), rankings, c.ttl); err != nil {
		c.log.Warn("ranking cache write failed",
			logger.Week(week.String()),
			logger.Err(err),
		)
	}
}
