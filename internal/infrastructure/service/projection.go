// Package service contains application-level infrastructure services that
// compose repositories, caches, and messaging into the live read model.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/messaging"
	"github.com/JohnHuang626/school-score-app/pkg/circuitbreaker"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/retry"
)

// ProjectionService maintains the in-memory read model: the full event log
// plus the roster configuration, reloaded wholesale from the store whenever a
// change signal arrives. Queries read from it without touching the database.
//
// Reload replaces the entire state, so a missed signal only delays
// convergence until the next signal or periodic reconcile. The version
// counter increments per successful reload and scopes downstream caches.
type ProjectionService struct {
	events   scoring.Repository
	settings roster.Repository
	hub      *messaging.SnapshotHub
	breaker  *circuitbreaker.CircuitBreaker
	retrier  *retry.Retrier
	log      *logger.Logger

	mu      sync.RWMutex
	state   projectionState
	version uint64
	loaded  bool
}

type projectionState struct {
	events []*scoring.ScoreEvent
	counts roster.ClassCounts
}

// NewProjectionService creates a new ProjectionService. The hub may be nil
// when no snapshot fan-out is needed.
func NewProjectionService(
	events scoring.Repository,
	settings roster.Repository,
	hub *messaging.SnapshotHub,
	log *logger.Logger,
) *ProjectionService {
	return &ProjectionService{
		events:   events,
		settings: settings,
		hub:      hub,
		breaker:  circuitbreaker.DatabaseBreaker(nil),
		retrier:  retry.DatabaseRetrier(),
		log:      log,
		state: projectionState{
			counts: roster.DefaultClassCounts(),
		},
	}
}

// Reload re-reads the full event log and roster settings and swaps them in
// as the new state. Transient store errors are retried; repeated failures
// trip the breaker so a down database is probed instead of hammered.
func (s *ProjectionService) Reload(ctx context.Context) error {
	var fresh projectionState

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			loaded, err := s.loadState(ctx)
			if err != nil {
				return retry.Retryable(err)
			}
			fresh = loaded
			return nil
		})
	})
	if err != nil {
		s.log.Error("projection reload failed",
			logger.Component("projection"),
			logger.Err(err),
		)
		return err
	}

	s.mu.Lock()
	s.state = fresh
	s.version++
	s.loaded = true
	version := s.version
	s.mu.Unlock()

	s.log.Info("projection reloaded",
		logger.Component("projection"),
		logger.Int("events", len(fresh.events)),
		logger.Int64("version", int64(version)),
	)

	if s.hub != nil {
		if err := s.hub.Publish(messaging.Snapshot{
			Version: version,
			Events:  fresh.events,
			Counts:  fresh.counts,
		}); err != nil && !errors.Is(err, messaging.ErrHubClosed) {
			s.log.Warn("snapshot publish failed", logger.Err(err))
		}
	}

	return nil
}

func (s *ProjectionService) loadState(ctx context.Context) (projectionState, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return projectionState{}, err
	}

	counts, err := s.settings.Load(ctx)
	if err != nil {
		if !errors.Is(err, roster.ErrSettingsNotFound) {
			return projectionState{}, err
		}
		counts = roster.DefaultClassCounts()
	}

	return projectionState{events: events, counts: counts}, nil
}

// Loaded reports whether at least one reload has succeeded. Queries served
// before the first reload see an empty event log with default roster counts.
func (s *ProjectionService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Events returns the current event log, newest first. Shared slice; treat as
// read-only.
func (s *ProjectionService) Events() []*scoring.ScoreEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.events
}

// Counts returns the current roster configuration.
func (s *ProjectionService) Counts() roster.ClassCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.counts
}

// Version returns the current snapshot version. Zero means no reload has
// completed yet.
func (s *ProjectionService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// WarmUp performs the initial load, retrying until the store answers or the
// context expires. Used at startup so the first request never races an
// unloaded projection.
func (s *ProjectionService) WarmUp(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		if err := s.Reload(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
