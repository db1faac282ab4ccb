package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/internal/infrastructure/messaging"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
)

type fakeEventRepo struct {
	events   []*scoring.ScoreEvent
	failWith error
	calls    int
}

func (f *fakeEventRepo) AppendBatch(ctx context.Context, events []*scoring.ScoreEvent) (int, error) {
	return 0, errors.New("not used")
}

func (f *fakeEventRepo) Delete(ctx context.Context, key scoring.EventKey) error {
	return errors.New("not used")
}

func (f *fakeEventRepo) DeleteKeys(ctx context.Context, keys []scoring.EventKey) error {
	return errors.New("not used")
}

func (f *fakeEventRepo) ListAll(ctx context.Context) ([]*scoring.ScoreEvent, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.events, nil
}

func (f *fakeEventRepo) ListKeys(ctx context.Context) ([]scoring.EventKey, error) {
	return nil, errors.New("not used")
}

type fakeSettingsRepo struct {
	counts   roster.ClassCounts
	failWith error
}

func (f *fakeSettingsRepo) Load(ctx context.Context) (roster.ClassCounts, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.counts == nil {
		return nil, roster.ErrSettingsNotFound
	}
	return f.counts, nil
}

func (f *fakeSettingsRepo) Save(ctx context.Context, counts roster.ClassCounts) error {
	f.counts = counts
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
}

func testEvent(t *testing.T, classID string, score int) *scoring.ScoreEvent {
	t.Helper()
	event, err := scoring.NewScoreEvent(
		timeutil.Date(2025, 3, 5),
		scoring.Period("morning-study"),
		scoring.ClassID(classID),
		scoring.Score(score),
		"",
		"rater-1",
	)
	require.NoError(t, err)
	return event
}

func TestProjectionService_Reload(t *testing.T) {
	events := &fakeEventRepo{events: []*scoring.ScoreEvent{
		testEvent(t, "101", 2),
		testEvent(t, "205", -1),
	}}
	settings := &fakeSettingsRepo{counts: roster.ClassCounts{1: 2, 2: 6, 3: 5}}

	svc := NewProjectionService(events, settings, nil, testLogger())

	assert.False(t, svc.Loaded())
	assert.Equal(t, uint64(0), svc.Version())
	assert.Equal(t, roster.DefaultClassCounts(), svc.Counts(), "defaults before first load")

	require.NoError(t, svc.Reload(context.Background()))

	assert.True(t, svc.Loaded())
	assert.Equal(t, uint64(1), svc.Version())
	assert.Len(t, svc.Events(), 2)
	assert.Equal(t, 6, svc.Counts().Count(2))
}

func TestProjectionService_MissingSettingsFallsBackToDefaults(t *testing.T) {
	events := &fakeEventRepo{}
	settings := &fakeSettingsRepo{}

	svc := NewProjectionService(events, settings, nil, testLogger())
	require.NoError(t, svc.Reload(context.Background()))

	assert.Equal(t, roster.DefaultClassCounts(), svc.Counts())
}

func TestProjectionService_VersionIncrementsPerReload(t *testing.T) {
	svc := NewProjectionService(&fakeEventRepo{}, &fakeSettingsRepo{}, nil, testLogger())

	require.NoError(t, svc.Reload(context.Background()))
	require.NoError(t, svc.Reload(context.Background()))
	require.NoError(t, svc.Reload(context.Background()))

	assert.Equal(t, uint64(3), svc.Version())
}

func TestProjectionService_FailedReloadKeepsOldState(t *testing.T) {
	events := &fakeEventRepo{events: []*scoring.ScoreEvent{testEvent(t, "101", 1)}}
	settings := &fakeSettingsRepo{counts: roster.DefaultClassCounts()}

	svc := NewProjectionService(events, settings, nil, testLogger())
	require.NoError(t, svc.Reload(context.Background()))

	events.failWith = scoring.ErrStoreUnavailable
	err := svc.Reload(context.Background())
	require.Error(t, err)

	assert.Equal(t, uint64(1), svc.Version(), "failed reload must not bump version")
	assert.Len(t, svc.Events(), 1, "failed reload must not clear state")
}

func TestProjectionService_PublishesSnapshotToHub(t *testing.T) {
	hub := messaging.NewSnapshotHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer hub.Close()

	ch, unsubscribe, err := hub.Subscribe()
	require.NoError(t, err)
	defer unsubscribe()

	events := &fakeEventRepo{events: []*scoring.ScoreEvent{testEvent(t, "301", 3)}}
	svc := NewProjectionService(events, &fakeSettingsRepo{}, hub, testLogger())

	require.NoError(t, svc.Reload(context.Background()))

	select {
	case snapshot := <-ch:
		assert.Equal(t, uint64(1), snapshot.Version)
		assert.Len(t, snapshot.Events, 1)
		assert.Equal(t, roster.DefaultClassCounts(), snapshot.Counts)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot on the hub")
	}
}
