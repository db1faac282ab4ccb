package command

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// fakeEventRepo is an in-memory scoring.Repository with optional fault
// injection.
type fakeEventRepo struct {
	events    []*scoring.ScoreEvent
	nextKey   int
	failWith  error
	deleted   []scoring.EventKey
	batchSize []int // size of each committed batch, in order
}

func (r *fakeEventRepo) AppendBatch(_ context.Context, batch []*scoring.ScoreEvent) (int, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	if len(batch) == 0 {
		return 0, scoring.ErrEmptyBatch
	}
	now := time.Now().UTC()
	for _, event := range batch {
		r.nextKey++
		event.Key = scoring.EventKey(fmt.Sprintf("key-%03d", r.nextKey))
		event.CreatedAt = now
		r.events = append(r.events, event)
	}
	r.batchSize = append(r.batchSize, len(batch))
	return len(batch), nil
}

func (r *fakeEventRepo) Delete(_ context.Context, key scoring.EventKey) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.deleted = append(r.deleted, key)
	kept := r.events[:0]
	for _, event := range r.events {
		if event.Key != key {
			kept = append(kept, event)
		}
	}
	r.events = kept
	return nil
}

func (r *fakeEventRepo) DeleteKeys(_ context.Context, keys []scoring.EventKey) error {
	for _, key := range keys {
		if err := r.Delete(context.Background(), key); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeEventRepo) ListAll(_ context.Context) ([]*scoring.ScoreEvent, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.events, nil
}

func (r *fakeEventRepo) ListKeys(_ context.Context) ([]scoring.EventKey, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	keys := make([]scoring.EventKey, 0, len(r.events))
	for _, event := range r.events {
		keys = append(keys, event.Key)
	}
	return keys, nil
}

// fakeNotifier counts change notifications.
type fakeNotifier struct {
	eventsChanged   int
	settingsChanged int
	failWith        error
}

func (n *fakeNotifier) NotifyEventsChanged(context.Context) error {
	n.eventsChanged++
	return n.failWith
}

func (n *fakeNotifier) NotifySettingsChanged(context.Context) error {
	n.settingsChanged++
	return n.failWith
}

var testPeriods = []scoring.Period{"morning-study", "assembly", "class-order", "lunch-rest", "cleaning", "dismissal"}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: logger.LevelFatal})
}

func submitHandler(repo *fakeEventRepo, notifier *fakeNotifier) *SubmitScoresHandler {
	return NewSubmitScoresHandler(repo, notifier, testPeriods, testLogger())
}

func validSubmit() SubmitScoresCommand {
	return SubmitScoresCommand{
		Date:     time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC),
		Period:   "lunch-rest",
		Note:     "noisy during rest",
		RaterUID: "rater-1",
		Selections: map[string]string{
			"101": "2",
			"102": "-1",
		},
	}
}

func TestSubmitScores_CommitsAtomicBatch(t *testing.T) {
	repo := &fakeEventRepo{}
	notifier := &fakeNotifier{}
	handler := submitHandler(repo, notifier)

	result, err := handler.Handle(context.Background(), validSubmit())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, weekcal.WeekID("2025-W10"), result.Week)
	assert.Equal(t, []int{2}, repo.batchSize, "both events must land in one batch")
	assert.Equal(t, 1, notifier.eventsChanged)
}

func TestSubmitScores_BatchSharesCommonFields(t *testing.T) {
	repo := &fakeEventRepo{}
	handler := submitHandler(repo, &fakeNotifier{})

	_, err := handler.Handle(context.Background(), validSubmit())
	require.NoError(t, err)
	require.Len(t, repo.events, 2)

	first, second := repo.events[0], repo.events[1]
	assert.Equal(t, first.Date, second.Date)
	assert.Equal(t, first.Week, second.Week)
	assert.Equal(t, first.Period, second.Period)
	assert.Equal(t, first.Note, second.Note)
	assert.Equal(t, first.RaterUID, second.RaterUID)
	assert.NotEqual(t, first.Key, second.Key)
	assert.NotEqual(t, first.ClassID, second.ClassID)
	assert.True(t, first.IsPersisted())
	assert.True(t, second.IsPersisted())
}

func TestSubmitScores_Validation(t *testing.T) {
	handler := submitHandler(&fakeEventRepo{}, &fakeNotifier{})

	noSelection := validSubmit()
	noSelection.Selections = nil
	_, err := handler.Handle(context.Background(), noSelection)
	assert.ErrorIs(t, err, ErrEmptySelection)

	noDate := validSubmit()
	noDate.Date = time.Time{}
	_, err = handler.Handle(context.Background(), noDate)
	assert.ErrorIs(t, err, ErrMissingDate)

	noIdentity := validSubmit()
	noIdentity.RaterUID = ""
	_, err = handler.Handle(context.Background(), noIdentity)
	assert.ErrorIs(t, err, scoring.ErrIdentityNotReady)

	badPeriod := validSubmit()
	badPeriod.Period = "recess"
	_, err = handler.Handle(context.Background(), badPeriod)
	assert.ErrorIs(t, err, scoring.ErrInvalidPeriod)
}

func TestSubmitScores_UnparsableEntriesDropSilently(t *testing.T) {
	repo := &fakeEventRepo{}
	handler := submitHandler(repo, &fakeNotifier{})

	cmd := validSubmit()
	cmd.Selections = map[string]string{
		"101":  "2",
		"102":  "not-a-number", // bad score
		"x0y":  "1",            // bad class ID
		"205":  "3",
	}

	result, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, repo.events, 2)
}

func TestSubmitScores_EntirelyUnparsableBatchIsEmptySelection(t *testing.T) {
	repo := &fakeEventRepo{}
	handler := submitHandler(repo, &fakeNotifier{})

	cmd := validSubmit()
	cmd.Selections = map[string]string{"bad": "x"}

	_, err := handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Empty(t, repo.events)
}

func TestSubmitScores_StoreFailureLeavesNothingWritten(t *testing.T) {
	storeErr := fmt.Errorf("%w: connection reset", scoring.ErrStoreUnavailable)
	repo := &fakeEventRepo{failWith: storeErr}
	notifier := &fakeNotifier{}
	handler := submitHandler(repo, notifier)

	_, err := handler.Handle(context.Background(), validSubmit())
	assert.ErrorIs(t, err, scoring.ErrStoreUnavailable)
	assert.Empty(t, repo.events)
	assert.Zero(t, notifier.eventsChanged)
	assert.False(t, handler.InFlight(), "in-flight flag must reset on failure")
}

func TestSubmitScores_NotificationFailureDoesNotFailCommit(t *testing.T) {
	repo := &fakeEventRepo{}
	notifier := &fakeNotifier{failWith: errors.New("redis down")}
	handler := submitHandler(repo, notifier)

	result, err := handler.Handle(context.Background(), validSubmit())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
}
