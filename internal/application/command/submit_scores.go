// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT SCORES COMMAND
// One scoring session: a rater scores any subset of classes for one date and
// evaluation period, optionally with a shared note, and the whole selection
// is persisted as a single atomic batch.
// ══════════════════════════════════════════════════════════════════════════════

// Validation errors surfaced directly to the user.
var (
	// ErrEmptySelection - the session has no scored class, or every
	// selection was dropped during parsing.
	ErrEmptySelection = errors.New("command: no class has a score selected")

	// ErrMissingDate - the session has no target date.
	ErrMissingDate = errors.New("command: no scoring date selected")

	// ErrNotAuthorized - an administrative command was issued without the
	// authorized precondition.
	ErrNotAuthorized = errors.New("command: administrative action not authorized")
)

// SubmitScoresCommand contains one scoring session's input.
//
// Selections map raw class IDs to raw score strings exactly as the scoring
// form produced them. Entries that fail numeric parsing are excluded from
// the batch silently per entry; only a batch that ends up empty fails.
type SubmitScoresCommand struct {
	// Date is the civil date the scores apply to.
	Date time.Time

	// Period is the evaluation slot being scored.
	Period scoring.Period

	// Note is optional free text shared by every event in the batch.
	Note string

	// RaterUID is the opaque identity of the submitter.
	RaterUID string

	// Selections maps classID -> score as entered.
	Selections map[string]string
}

// Validate checks the session-level preconditions.
func (c SubmitScoresCommand) Validate() error {
	if c.RaterUID == "" {
		return scoring.ErrIdentityNotReady
	}
	if c.Date.IsZero() {
		return ErrMissingDate
	}
	if len(c.Selections) == 0 {
		return ErrEmptySelection
	}
	if !c.Period.IsValid() {
		return scoring.ErrInvalidPeriod
	}
	return nil
}

// SubmitScoresResult reports what the session actually wrote.
type SubmitScoresResult struct {
	// Written is the number of events persisted.
	Written int

	// Skipped is the number of selections dropped during parsing.
	Skipped int

	// Week is the derived week identifier shared by the batch.
	Week weekcal.WeekID

	// SubmittedAt is when the batch was accepted by the store.
	SubmittedAt time.Time
}

// SubmitScoresHandler handles the SubmitScoresCommand.
type SubmitScoresHandler struct {
	events   scoring.Repository
	notifier scoring.ChangeNotifier
	log      *logger.Logger

	// periods is the deployment's evaluation slot list; a submission for an
	// unknown slot is rejected up front.
	periods map[scoring.Period]struct{}

	// inFlight is the UI-facing submission indicator. It never blocks a
	// concurrent submission; racing batches are resolved by store atomicity.
	inFlight atomic.Bool
}

// NewSubmitScoresHandler creates a new SubmitScoresHandler.
func NewSubmitScoresHandler(events scoring.Repository, notifier scoring.ChangeNotifier, periods []scoring.Period, log *logger.Logger) *SubmitScoresHandler {
	allowed := make(map[scoring.Period]struct{}, len(periods))
	for _, p := range periods {
		allowed[p] = struct{}{}
	}
	return &SubmitScoresHandler{
		events:   events,
		notifier: notifier,
		periods:  allowed,
		log:      log.With(logger.Component("submit_scores")),
	}
}

// InFlight reports whether a submission is currently being written.
func (h *SubmitScoresHandler) InFlight() bool {
	return h.inFlight.Load()
}

// Handle validates the session, builds one event per parsable selection and
// appends them as a single atomic batch. On failure nothing is persisted and
// the caller's selection state stays intact for retry.
func (h *SubmitScoresHandler) Handle(ctx context.Context, cmd SubmitScoresCommand) (*SubmitScoresResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if _, ok := h.periods[cmd.Period]; !ok {
		return nil, fmt.Errorf("%w: %q", scoring.ErrInvalidPeriod, cmd.Period)
	}

	h.inFlight.Store(true)
	defer h.inFlight.Store(false)

	batch := make([]*scoring.ScoreEvent, 0, len(cmd.Selections))
	skipped := 0
	for rawClassID, rawScore := range cmd.Selections {
		score, err := strconv.Atoi(rawScore)
		if err != nil {
			skipped++
			continue
		}

		event, err := scoring.NewScoreEvent(cmd.Date, cmd.Period, scoring.ClassID(rawClassID), scoring.Score(score), cmd.Note, cmd.RaterUID)
		if err != nil {
			// Unparsable class/grade drops this entry, not the batch.
			skipped++
			continue
		}
		batch = append(batch, event)
	}

	if len(batch) == 0 {
		return nil, ErrEmptySelection
	}

	written, err := h.events.AppendBatch(ctx, batch)
	if err != nil {
		h.log.Error("score batch write failed",
			logger.Week(string(batch[0].Week)),
			logger.Period(string(cmd.Period)),
			logger.Int("batch_size", len(batch)),
			logger.Err(err),
		)
		return nil, err
	}

	if err := h.notifier.NotifyEventsChanged(ctx); err != nil {
		// The write committed; subscribers catch up on the next reconcile.
		h.log.Warn("event change notification failed", logger.Err(err))
	}

	h.log.Info("scoring session committed",
		logger.Week(string(batch[0].Week)),
		logger.Period(string(cmd.Period)),
		logger.Int("written", written),
		logger.Int("skipped", skipped),
	)

	return &SubmitScoresResult{
		Written:     written,
		Skipped:     skipped,
		Week:        batch[0].Week,
		SubmittedAt: time.Now().UTC(),
	}, nil
}
