// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ROSTER COMMAND (administrative)
// Persists a new per-grade class-count configuration. The projection picks
// the change up through the settings snapshot, so aggregation inputs stay
// explicit; nothing here mutates aggregation state directly.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateRosterCommand carries a full candidate configuration. Draft-versus-
// current editing is the caller's concern; by the time the command is issued
// the draft is final.
type UpdateRosterCommand struct {
	// Counts is the candidate class-count configuration.
	Counts roster.ClassCounts

	// Authorized must be true; the gating policy lives in the presentation
	// layer.
	Authorized bool
}

// Validate validates the command.
func (c UpdateRosterCommand) Validate() error {
	if !c.Authorized {
		return ErrNotAuthorized
	}
	if len(c.Counts) == 0 {
		return roster.ErrClassCountRange
	}
	return c.Counts.Validate()
}

// UpdateRosterHandler handles the UpdateRosterCommand.
type UpdateRosterHandler struct {
	settings roster.Repository
	notifier scoring.ChangeNotifier
	log      *logger.Logger
}

// NewUpdateRosterHandler creates a new UpdateRosterHandler.
func NewUpdateRosterHandler(settings roster.Repository, notifier scoring.ChangeNotifier, log *logger.Logger) *UpdateRosterHandler {
	return &UpdateRosterHandler{
		settings: settings,
		notifier: notifier,
		log:      log.With(logger.Component("update_roster")),
	}
}

// Handle validates and upserts the settings record. Shrinking a grade takes
// classes out of the scoring form immediately but leaves their history in
// the event store untouched.
func (h *UpdateRosterHandler) Handle(ctx context.Context, cmd UpdateRosterCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := h.settings.Save(ctx, cmd.Counts); err != nil {
		h.log.Error("roster settings write failed", logger.Err(err))
		return err
	}

	if err := h.notifier.NotifySettingsChanged(ctx); err != nil {
		h.log.Warn("settings change notification failed", logger.Err(err))
	}

	h.log.Info("roster settings updated", logger.Any("counts", cmd.Counts))
	return nil
}
