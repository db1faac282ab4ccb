package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnHuang626/school-score-app/internal/application/command"
	"github.com/JohnHuang626/school-score-app/internal/application/query"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/internal/interface/http/handlers"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

// memEventRepo is an in-memory event store, newest first like the real one.
type memEventRepo struct {
	mu     sync.Mutex
	events []*scoring.ScoreEvent
	seq    int
}

func (r *memEventRepo) AppendBatch(_ context.Context, events []*scoring.ScoreEvent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.seq++
		e.Key = scoring.EventKey(fmt.Sprintf("key-%d", r.seq))
		e.CreatedAt = time.Now().UTC()
		r.events = append([]*scoring.ScoreEvent{e}, r.events...)
	}
	return len(events), nil
}

func (r *memEventRepo) Delete(_ context.Context, key scoring.EventKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	for _, e := range r.events {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

func (r *memEventRepo) DeleteKeys(_ context.Context, keys []scoring.EventKey) error {
	for _, key := range keys {
		_ = r.Delete(context.Background(), key)
	}
	return nil
}

func (r *memEventRepo) ListAll(_ context.Context) ([]*scoring.ScoreEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*scoring.ScoreEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *memEventRepo) ListKeys(_ context.Context) ([]scoring.EventKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]scoring.EventKey, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

// memSettingsRepo stores the roster settings record in memory.
type memSettingsRepo struct {
	mu     sync.Mutex
	counts roster.ClassCounts
}

func (r *memSettingsRepo) Load(_ context.Context) (roster.ClassCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		return nil, roster.ErrSettingsNotFound
	}
	return r.counts.Clone(), nil
}

func (r *memSettingsRepo) Save(_ context.Context, counts roster.ClassCounts) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = counts.Clone()
	return nil
}

// noopNotifier discards change notifications.
type noopNotifier struct{}

func (noopNotifier) NotifyEventsChanged(context.Context) error   { return nil }
func (noopNotifier) NotifySettingsChanged(context.Context) error { return nil }

// fakeSnapshots serves a fixed projection snapshot to the read side.
type fakeSnapshots struct {
	events  []*scoring.ScoreEvent
	counts  roster.ClassCounts
	version uint64
}

func (f *fakeSnapshots) Events() []*scoring.ScoreEvent { return f.events }
func (f *fakeSnapshots) Counts() roster.ClassCounts {
	if f.counts == nil {
		return roster.DefaultClassCounts()
	}
	return f.counts
}
func (f *fakeSnapshots) Version() uint64 { return f.version }

// testEnv bundles the server with the fakes behind it.
type testEnv struct {
	server    *Server
	events    *memEventRepo
	settings  *memSettingsRepo
	snapshots *fakeSnapshots
}

var testPeriods = []scoring.Period{"morning-study", "assembly", "cleaning"}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	events := &memEventRepo{}
	settings := &memSettingsRepo{}
	snapshots := &fakeSnapshots{version: 1}
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}

	srv := NewServer(cfg, Dependencies{
		SubmitScoresHandler:    command.NewSubmitScoresHandler(events, noopNotifier{}, testPeriods, log),
		DeleteEventHandler:     command.NewDeleteEventHandler(events, noopNotifier{}, log),
		ClearHistoryHandler:    command.NewClearHistoryHandler(events, noopNotifier{}, log),
		UpdateRosterHandler:    command.NewUpdateRosterHandler(settings, noopNotifier{}, log),
		GetWeeklyTotalsHandler: query.NewGetWeeklyTotalsHandler(snapshots),
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(snapshots, nil),
		GetHistoryHandler:      query.NewGetHistoryHandler(snapshots),
		Snapshots:              snapshots,
		Logger:                 log,
		HealthChecker:          handlers.NewNoopHealthChecker(),
	})

	return &testEnv{server: srv, events: events, settings: settings, snapshots: snapshots}
}

func (e *testEnv) do(method, target string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var envelope JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_SubmitScores(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/scores", submitScoresRequest{
		Date:     "2025-03-05",
		Period:   "morning-study",
		RaterUID: "rater-1",
		Selections: map[string]string{
			"101": "2",
			"205": "-1",
		},
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result command.SubmitScoresResult
	decodeData(t, rec, &result)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, "2025-W10", result.Week.String())

	stored, err := env.events.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestServer_SubmitScores_UnknownPeriod(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/scores", submitScoresRequest{
		Date:       "2025-03-05",
		Period:     "recess",
		RaterUID:   "rater-1",
		Selections: map[string]string{"101": "1"},
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "validation_failed", envelope.Error.Code)
}

func TestServer_SubmitScores_MissingRater(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/scores", submitScoresRequest{
		Date:       "2025-03-05",
		Period:     "morning-study",
		Selections: map[string]string{"101": "1"},
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_SubmitScores_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_DeleteEvent(t *testing.T) {
	env := newTestEnv(t, nil)

	event, err := scoring.NewScoreEvent(timeutil.Date(2025, 3, 5), "assembly", "101", 2, "", "rater-1")
	require.NoError(t, err)
	_, err = env.events.AppendBatch(context.Background(), []*scoring.ScoreEvent{event})
	require.NoError(t, err)

	rec := env.do(http.MethodDelete, "/api/v1/scores/"+event.Key.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stored, err := env.events.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestServer_DeleteEvent_AbsentKeyIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodDelete, "/api/v1/scores/never-existed", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_GetTotals(t *testing.T) {
	env := newTestEnv(t, nil)

	event, err := scoring.NewScoreEvent(timeutil.Date(2025, 3, 5), "assembly", "101", 3, "", "rater-1")
	require.NoError(t, err)
	env.snapshots.events = []*scoring.ScoreEvent{event}

	rec := env.do(http.MethodGet, "/api/v1/totals?date=2025-03-05", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result query.GetWeeklyTotalsResult
	decodeData(t, rec, &result)
	assert.Equal(t, "2025-W10", result.Week.String())
}

func TestServer_GetTotals_BadDate(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/totals?date=03-05-2025", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetRankings(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/rankings?week=2025-W10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result query.GetLeaderboardResult
	decodeData(t, rec, &result)
	assert.Equal(t, "2025-W10", result.Week.String())
	assert.Equal(t, "2025-W09", result.PrevWeek.String())
	assert.Equal(t, "2025-W11", result.NextWeek.String())
	assert.Len(t, result.Boards, len(roster.Grades))
}

func TestServer_GetRankings_BadWeek(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/rankings?week=week-ten", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	event, err := scoring.NewScoreEvent(timeutil.Date(2025, 3, 5), "cleaning", "205", -2, "talking", "rater-1")
	require.NoError(t, err)
	event.Key = "key-1"
	event.CreatedAt = time.Now().UTC()
	env.snapshots.events = []*scoring.ScoreEvent{event}

	rec := env.do(http.MethodGet, "/api/v1/history", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result query.GetHistoryResult
	decodeData(t, rec, &result)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "key-1", result.Records[0].Key)
	assert.Equal(t, -2, result.Records[0].Score)
	assert.Equal(t, 1, result.TotalCount)
}

func TestServer_WeekNavigation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/weeks/2025-W10/next", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next weekNavigationDTO
	decodeData(t, rec, &next)
	assert.Equal(t, "2025-W11", next.Week.String())

	rec = env.do(http.MethodGet, "/api/v1/weeks/2025-W01/prev", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prev weekNavigationDTO
	decodeData(t, rec, &prev)
	assert.Equal(t, "2024-W52", prev.Week.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMINISTRATIVE ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_ClearHistory_AdminGate(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.AdminToken = "sekrit"
	})

	event, err := scoring.NewScoreEvent(timeutil.Date(2025, 3, 5), "assembly", "101", 1, "", "rater-1")
	require.NoError(t, err)
	_, err = env.events.AppendBatch(context.Background(), []*scoring.ScoreEvent{event})
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/api/v1/admin/clear", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/admin/clear", nil, map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/admin/clear", nil, map[string]string{"X-Admin-Token": "sekrit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result command.ClearHistoryResult
	decodeData(t, rec, &result)
	assert.Equal(t, 1, result.Deleted)

	stored, err := env.events.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestServer_GetRoster(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/admin/roster", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result rosterDTO
	decodeData(t, rec, &result)
	assert.Equal(t, map[scoring.Grade]int{1: 4, 2: 5, 3: 5}, result.Counts)
}

func TestServer_UpdateRoster(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/api/v1/admin/roster", rosterDTO{
		Counts: map[scoring.Grade]int{1: 6, 2: 5, 3: 5},
	}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	saved, err := env.settings.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, saved.Count(1))
}

func TestServer_UpdateRoster_CountOutOfRange(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/api/v1/admin/roster", rosterDTO{
		Counts: map[scoring.Grade]int{1: 99},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & PLUMBING
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := env.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_UnknownPathReturns404(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SecurityHeadersPresent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}
