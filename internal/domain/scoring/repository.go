// Package scoring contains the domain model for class behavior score events.
package scoring

import (
	"context"
)

// Repository defines the interface for score event persistence.
// This interface is implemented by the infrastructure layer; the domain has
// no knowledge of the actual storage mechanism.
//
// The store owns event identity: AppendBatch assigns keys and creation
// timestamps. All multi-record operations are atomic - a concurrent reader
// sees either the whole batch or none of it.
type Repository interface {
	// AppendBatch atomically persists a batch of unsaved events, assigning
	// each one a fresh key and a creation timestamp. Returns the number of
	// events written.
	AppendBatch(ctx context.Context, events []*ScoreEvent) (int, error)

	// Delete removes exactly one event by key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key EventKey) error

	// DeleteKeys atomically removes every event in the given key set.
	// Absent keys are skipped silently.
	DeleteKeys(ctx context.Context, keys []EventKey) error

	// ListAll returns the full current event collection ordered by creation
	// time, most recent first.
	ListAll(ctx context.Context) ([]*ScoreEvent, error)

	// ListKeys returns the keys of every event currently in the store.
	// This is the read half of bulk-clear: the returned set is a snapshot,
	// and events appended afterwards are not covered by it.
	ListKeys(ctx context.Context) ([]EventKey, error)
}

// ChangeNotifier signals other processes (and the local projection) that the
// event collection or the roster settings changed and snapshots should be
// re-read. Notifications carry no payload: synchronization is always a full
// re-read, never an incremental patch.
type ChangeNotifier interface {
	// NotifyEventsChanged marks the event collection as changed.
	NotifyEventsChanged(ctx context.Context) error

	// NotifySettingsChanged marks the roster settings record as changed.
	NotifySettingsChanged(ctx context.Context) error
}
