// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE EVENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteEventCommand removes exactly one score event.
type DeleteEventCommand struct {
	// Key is the event to delete.
	Key scoring.EventKey
}

// Validate validates the command.
func (c DeleteEventCommand) Validate() error {
	if !c.Key.IsValid() {
		return scoring.ErrInvalidEventKey
	}
	return nil
}

// DeleteEventHandler handles the DeleteEventCommand.
type DeleteEventHandler struct {
	events   scoring.Repository
	notifier scoring.ChangeNotifier
	log      *logger.Logger
}

// NewDeleteEventHandler creates a new DeleteEventHandler.
func NewDeleteEventHandler(events scoring.Repository, notifier scoring.ChangeNotifier, log *logger.Logger) *DeleteEventHandler {
	return &DeleteEventHandler{
		events:   events,
		notifier: notifier,
		log:      log.With(logger.Component("delete_event")),
	}
}

// Handle deletes the event. The delete is idempotent at the store level, so
// no existence check is made first: deleting an already-absent key succeeds.
func (h *DeleteEventHandler) Handle(ctx context.Context, cmd DeleteEventCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := h.events.Delete(ctx, cmd.Key); err != nil {
		h.log.Error("event delete failed", logger.EventKey(string(cmd.Key)), logger.Err(err))
		return err
	}

	if err := h.notifier.NotifyEventsChanged(ctx); err != nil {
		h.log.Warn("event change notification failed", logger.Err(err))
	}

	h.log.Info("event deleted", logger.EventKey(string(cmd.Key)))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLEAR HISTORY COMMAND (administrative)
// ══════════════════════════════════════════════════════════════════════════════

// ClearHistoryCommand deletes every score event that exists at read time.
//
// This is read-then-delete, not a linearizable drain: the key set is
// snapshotted first and a concurrent writer can append between the read and
// the delete, leaving those events in place. For an administrative reset
// that race is accepted and documented rather than locked away.
type ClearHistoryCommand struct {
	// Authorized must be true; the gating policy itself (who may clear)
	// lives in the presentation layer.
	Authorized bool
}

// Validate validates the command.
func (c ClearHistoryCommand) Validate() error {
	if !c.Authorized {
		return ErrNotAuthorized
	}
	return nil
}

// ClearHistoryResult reports the outcome of a bulk clear.
type ClearHistoryResult struct {
	// Deleted is the number of events in the read snapshot, all of which
	// were deleted in one atomic batch.
	Deleted int
}

// ClearHistoryHandler handles the ClearHistoryCommand.
type ClearHistoryHandler struct {
	events   scoring.Repository
	notifier scoring.ChangeNotifier
	log      *logger.Logger
}

// NewClearHistoryHandler creates a new ClearHistoryHandler.
func NewClearHistoryHandler(events scoring.Repository, notifier scoring.ChangeNotifier, log *logger.Logger) *ClearHistoryHandler {
	return &ClearHistoryHandler{
		events:   events,
		notifier: notifier,
		log:      log.With(logger.Component("clear_history")),
	}
}

// Handle reads the full current key set and deletes it as one atomic batch.
func (h *ClearHistoryHandler) Handle(ctx context.Context, cmd ClearHistoryCommand) (*ClearHistoryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	keys, err := h.events.ListKeys(ctx)
	if err != nil {
		h.log.Error("history key snapshot failed", logger.Err(err))
		return nil, err
	}

	if len(keys) > 0 {
		if err := h.events.DeleteKeys(ctx, keys); err != nil {
			h.log.Error("history clear failed", logger.Int("keys", len(keys)), logger.Err(err))
			return nil, err
		}
	}

	if err := h.notifier.NotifyEventsChanged(ctx); err != nil {
		h.log.Warn("event change notification failed", logger.Err(err))
	}

	h.log.Info("history cleared", logger.Int("deleted", len(keys)))
	return &ClearHistoryResult{Deleted: len(keys)}, nil
}
