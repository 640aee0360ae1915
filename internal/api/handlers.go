// Package api exposes the HTTP interface for creating attempts, reporting
// stats and reading progress estimates.
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/cdc"
	"github.com/EastAgile/airbyte/internal/dashboard"
	"github.com/EastAgile/airbyte/internal/httputil"
	"github.com/EastAgile/airbyte/internal/metrics"
	"github.com/EastAgile/airbyte/internal/progress"
	"github.com/EastAgile/airbyte/internal/repository"
	"github.com/EastAgile/airbyte/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	store *store.Store
	mux   *http.ServeMux
}

type CreateAttemptRequest struct {
	JobID       string                `json:"job_id"`
	TargetLSN   string                `json:"target_lsn"`
	TotalStats  *attempt.Stats        `json:"total_stats"`
	StreamStats []attempt.StreamStats `json:"stream_stats"`
}

type StatsUpdateRequest struct {
	Status      *attempt.Status       `json:"status"`
	TotalStats  *attempt.Stats        `json:"total_stats"`
	StreamStats []attempt.StreamStats `json:"stream_stats"`
	Position    *cdc.EventPosition    `json:"position"`
}

func NewAPI(s *store.Store, repo repository.AttemptRepository) *API {
	api := &API{
		store: s,
		mux:   http.NewServeMux(),
	}

	api.setupRoutes(repo)
	return api
}

func (a *API) setupRoutes(repo repository.AttemptRepository) {
	a.mux.HandleFunc("/api/attempts", a.handleAttempts)
	a.mux.HandleFunc("/api/attempts/", a.handleAttemptByID)

	dash := dashboard.NewDashboard(a.store, repo)
	a.mux.HandleFunc("/api/dashboard/stats", dash.GetStats)
	a.mux.HandleFunc("/api/dashboard/history", dash.GetRecentAttempts)
	a.mux.HandleFunc("/api/dashboard/summary", dash.GetSummary)

	a.mux.Handle("/metrics", promhttp.Handler())
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) handleAttempts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAttempt(w, r)
	case http.MethodGet:
		a.listAttempts(w, r)
	default:
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) createAttempt(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("failed to close request body: %v", err)
		}
	}()

	var req CreateAttemptRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.JobID == "" {
		httputil.WriteJSONError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	att := attempt.NewAttempt(req.JobID)
	att.TargetLSN = req.TargetLSN
	att.TotalStats = req.TotalStats
	att.StreamStats = req.StreamStats

	if err := a.store.SaveSnapshot(att); err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.RecordAttemptCreated(att.JobID)
	httputil.WriteJSON(w, http.StatusCreated, att)
}

func (a *API) listAttempts(w http.ResponseWriter, _ *http.Request) {
	attempts, err := a.store.GetAllSnapshots()
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, attempts)
}

func (a *API) handleAttemptByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/attempts/")
	parts := strings.Split(rest, "/")
	attemptID := parts[0]
	if attemptID == "" {
		httputil.WriteJSONError(w, "Attempt ID is required", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		a.getAttempt(w, r, attemptID)
	case len(parts) == 2 && parts[1] == "progress":
		a.getProgress(w, r, attemptID)
	case len(parts) == 2 && parts[1] == "stats":
		a.postStats(w, r, attemptID)
	default:
		httputil.WriteJSONError(w, "Not found", http.StatusNotFound)
	}
}

func (a *API) getAttempt(w http.ResponseWriter, r *http.Request, attemptID string) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att, err := a.store.GetSnapshot(attemptID)
	if err != nil {
		httputil.WriteJSONError(w, "Attempt not found", http.StatusNotFound)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, att)
}

func (a *API) getProgress(w http.ResponseWriter, r *http.Request, attemptID string) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att, err := a.store.GetSnapshot(attemptID)
	if err != nil {
		httputil.WriteJSONError(w, "Attempt not found", http.StatusNotFound)
		return
	}

	est := progress.EstimateAttempt(att)
	metrics.UpdateProgressGauges(att.JobID, est)

	httputil.WriteJSON(w, http.StatusOK, est)
}

func (a *API) postStats(w http.ResponseWriter, r *http.Request, attemptID string) {
	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	att, err := a.store.GetSnapshot(attemptID)
	if err != nil {
		httputil.WriteJSONError(w, "Attempt not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("failed to close request body: %v", err)
		}
	}()

	var req StatsUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	update := store.NewStatsUpdate(att.ID, att.JobID)
	update.Status = req.Status
	update.TotalStats = req.TotalStats
	update.StreamStats = req.StreamStats
	update.Position = req.Position

	if err := a.store.EnqueueUpdate(update); err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, update)
}
