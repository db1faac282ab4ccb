// Package messaging implements in-process fan-out of data snapshots for the
// school score service. Readers subscribe to full-state snapshots rather than
// deltas, so a subscriber that misses an update is corrected by the next one.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is one complete, immutable view of the application state: the full
// event log plus the roster configuration, tagged with a monotonically
// increasing version. Consumers replace their whole state with it; they never
// merge.
type Snapshot struct {
	// Version increases by one per published snapshot.
	Version uint64

	// Events is the full event log, newest first. Shared across subscribers;
	// treat as read-only.
	Events []*scoring.ScoreEvent

	// Counts is the roster configuration at snapshot time.
	Counts roster.ClassCounts
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT HUB
// ══════════════════════════════════════════════════════════════════════════════

// ErrHubClosed is returned when operations are attempted on a closed hub.
var ErrHubClosed = errors.New("snapshot hub is closed")

// SnapshotHub fans the latest snapshot out to in-process subscribers.
//
// Delivery is latest-wins: each subscriber has a buffer of one, and a new
// snapshot displaces an unconsumed older one. A slow subscriber therefore
// never blocks publishing and never observes snapshots out of order.
type SnapshotHub struct {
	mu          sync.RWMutex
	subscribers map[int]chan Snapshot
	nextID      int
	latest      *Snapshot
	logger      *slog.Logger
	closed      bool
}

// NewSnapshotHub creates a new SnapshotHub.
func NewSnapshotHub(logger *slog.Logger) *SnapshotHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotHub{
		subscribers: make(map[int]chan Snapshot),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The current snapshot, if any, is delivered
// immediately so late subscribers start from live state.
func (h *SnapshotHub) Subscribe() (<-chan Snapshot, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrHubClosed
	}

	id := h.nextID
	h.nextID++

	ch := make(chan Snapshot, 1)
	h.subscribers[id] = ch

	if h.latest != nil {
		ch <- *h.latest
	}

	h.logger.Debug("snapshot subscriber added", "subscriber_id", id)

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
		}
	}

	return ch, unsubscribe, nil
}

// Publish replaces the current snapshot and delivers it to every subscriber,
// displacing any undelivered older snapshot.
func (h *SnapshotHub) Publish(snapshot Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	h.latest = &snapshot

	for id, ch := range h.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Buffer full: drop the stale snapshot, deliver the new one.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
			h.logger.Debug("displaced stale snapshot", "subscriber_id", id)
		}
	}

	h.logger.Debug("snapshot published",
		"version", snapshot.Version,
		"events", len(snapshot.Events),
		"subscribers", len(h.subscribers),
	)

	return nil
}

// Latest returns the most recently published snapshot, if any.
func (h *SnapshotHub) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.latest == nil {
		return Snapshot{}, false
	}
	return *h.latest, true
}

// SubscriberCount returns the number of active subscribers.
func (h *SnapshotHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close shuts the hub down and closes every subscriber channel.
func (h *SnapshotHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}

	h.logger.Info("snapshot hub closed")
	return nil
}
