// Package http implements the REST API for the class behavior scoring service.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/JohnHuang626/school-score-app/internal/application/command"
	"github.com/JohnHuang626/school-score-app/internal/application/query"
	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
	"github.com/JohnHuang626/school-score-app/pkg/logger"
	"github.com/JohnHuang626/school-score-app/pkg/timeutil"
	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	info := map[string]interface{}{
		"name":        "School Score API",
		"version":     "v1",
		"description": "REST API for weekly class behavior scoring",
		"endpoints": map[string]string{
			"health":   "/health",
			"scores":   "/api/v1/scores",
			"totals":   "/api/v1/totals",
			"rankings": "/api/v1/rankings",
			"history":  "/api/v1/history",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// If we can respond, we are alive.
	w.WriteHeader(http.StatusOK)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// submitScoresRequest is the request body for POST /api/v1/scores.
type submitScoresRequest struct {
	// Date is the scoring date in "2006-01-02" form.
	Date string `json:"date"`

	// Period is the evaluation slot being scored.
	Period string `json:"period"`

	// Note is optional free text shared by every event in the batch.
	Note string `json:"note,omitempty"`

	// RaterUID identifies the submitter.
	RaterUID string `json:"raterUid"`

	// Selections maps classID -> score string exactly as the form produced
	// them.
	Selections map[string]string `json:"selections"`
}

// handleSubmitScores handles POST /api/v1/scores.
func (s *Server) handleSubmitScores(w http.ResponseWriter, r *http.Request) {
	var req submitScoresRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.SubmitScoresCommand{
		Period:     scoring.Period(req.Period),
		Note:       req.Note,
		RaterUID:   req.RaterUID,
		Selections: req.Selections,
	}

	if req.Date != "" {
		date, err := timeutil.ParseDate(req.Date)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_date", "Date must have the form YYYY-MM-DD")
			return
		}
		cmd.Date = date
	}

	result, err := s.deps.SubmitScoresHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleDeleteEvent handles DELETE /api/v1/scores/{key}.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	err := s.deps.DeleteEventHandler.Handle(r.Context(), command.DeleteEventCommand{
		Key: scoring.EventKey(key),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetTotals handles GET /api/v1/totals?date=YYYY-MM-DD.
// An absent date selects today in the school timezone.
func (s *Server) handleGetTotals(w http.ResponseWriter, r *http.Request) {
	date := timeutil.Today()
	if raw := getQueryParam(r, "date", ""); raw != "" {
		parsed, err := timeutil.ParseDate(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_date", "Date must have the form YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result, err := s.deps.GetWeeklyTotalsHandler.Handle(r.Context(), query.GetWeeklyTotalsQuery{Date: date})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetRankings handles GET /api/v1/rankings?week=YYYY-Www.
// An absent week selects the current week.
func (s *Server) handleGetRankings(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Week: getQueryParam(r, "week", ""),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetHistory handles GET /api/v1/history?limit=&week=.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetHistoryHandler.Handle(r.Context(), query.GetHistoryQuery{
		Limit: getQueryParamInt(r, "limit", 0),
		Week:  getQueryParam(r, "week", ""),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		TotalCount: result.TotalCount,
	})
}

// weekNavigationDTO is the response body for week navigation endpoints.
type weekNavigationDTO struct {
	Week weekcal.WeekID `json:"week"`
}

// handleWeekNext handles GET /api/v1/weeks/{week}/next.
func (s *Server) handleWeekNext(w http.ResponseWriter, r *http.Request) {
	s.handleWeekStep(w, r, weekcal.WeekID.Next)
}

// handleWeekPrev handles GET /api/v1/weeks/{week}/prev.
func (s *Server) handleWeekPrev(w http.ResponseWriter, r *http.Request) {
	s.handleWeekStep(w, r, weekcal.WeekID.Prev)
}

func (s *Server) handleWeekStep(w http.ResponseWriter, r *http.Request, step func(weekcal.WeekID) (weekcal.WeekID, error)) {
	week, err := weekcal.Parse(r.PathValue("week"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	stepped, err := step(week)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, weekNavigationDTO{Week: stepped})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMINISTRATIVE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleClearHistory handles POST /api/v1/admin/clear.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if !s.isAuthorized(r) {
		writeJSONError(w, http.StatusForbidden, "not_authorized", "Administrative token missing or invalid")
		return
	}

	result, err := s.deps.ClearHistoryHandler.Handle(r.Context(), command.ClearHistoryCommand{
		Authorized: true,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// rosterDTO is the request and response body for the roster endpoints.
type rosterDTO struct {
	// Counts maps grade -> class count.
	Counts map[scoring.Grade]int `json:"counts"`
}

// handleGetRoster handles GET /api/v1/admin/roster.
func (s *Server) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rosterDTO{Counts: s.deps.Snapshots.Counts()})
}

// handleUpdateRoster handles PUT /api/v1/admin/roster.
func (s *Server) handleUpdateRoster(w http.ResponseWriter, r *http.Request) {
	if !s.isAuthorized(r) {
		writeJSONError(w, http.StatusForbidden, "not_authorized", "Administrative token missing or invalid")
		return
	}

	var req rosterDTO
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.UpdateRosterHandler.Handle(r.Context(), command.UpdateRosterCommand{
		Counts:     roster.ClassCounts(req.Counts),
		Authorized: true,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON for this endpoint")
		return false
	}
	return true
}

// writeDomainError maps application and domain errors onto HTTP statuses.
// Validation failures are client errors; store outages are 503 so load
// balancers and retrying clients treat them as transient.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, command.ErrEmptySelection),
		errors.Is(err, command.ErrMissingDate),
		errors.Is(err, scoring.ErrInvalidPeriod),
		errors.Is(err, scoring.ErrInvalidClassID),
		errors.Is(err, scoring.ErrInvalidEventKey),
		errors.Is(err, scoring.ErrEmptyBatch),
		errors.Is(err, roster.ErrUnknownGrade),
		errors.Is(err, roster.ErrClassCountRange),
		errors.Is(err, weekcal.ErrInvalidDate),
		errors.Is(err, weekcal.ErrInvalidWeekID),
		errors.Is(err, query.ErrNegativeLimit):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())

	case errors.Is(err, scoring.ErrIdentityNotReady):
		writeJSONError(w, http.StatusUnauthorized, "identity_not_ready", err.Error())

	case errors.Is(err, command.ErrNotAuthorized),
		errors.Is(err, scoring.ErrPermissionDenied):
		writeJSONError(w, http.StatusForbidden, "not_authorized", err.Error())

	case errors.Is(err, scoring.ErrStoreUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "store_unavailable", "Backing store is unavailable, please retry")

	default:
		s.logger.Error("unhandled request error",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}
