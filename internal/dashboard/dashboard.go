// Package dashboard implements the monitoring endpoints that aggregate
// attempt snapshots and sync history.
package dashboard

import (
	"net/http"
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/httputil"
	"github.com/EastAgile/airbyte/internal/repository"
	"github.com/EastAgile/airbyte/internal/store"
)

type Dashboard struct {
	store *store.Store
	repo  repository.AttemptRepository
}

type Stats struct {
	TotalAttempts     int            `json:"total_attempts"`
	RunningAttempts   int            `json:"running_attempts"`
	SucceededAttempts int            `json:"succeeded_attempts"`
	FailedAttempts    int            `json:"failed_attempts"`
	CancelledAttempts int            `json:"cancelled_attempts"`
	AttemptsByJob     map[string]int `json:"attempts_by_job"`
	AverageSyncTime   string         `json:"average_sync_time"`
	LastUpdated       time.Time      `json:"last_updated"`
}

type AttemptHistory struct {
	AttemptID string         `json:"attempt_id"`
	JobID     string         `json:"job_id"`
	Status    attempt.Status `json:"status"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
	Duration  string         `json:"duration"`
}

func NewDashboard(s *store.Store, repo repository.AttemptRepository) *Dashboard {
	return &Dashboard{store: s, repo: repo}
}

func (d *Dashboard) GetStats(w http.ResponseWriter, r *http.Request) {
	attempts, err := d.store.GetAllSnapshots()
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := Stats{
		TotalAttempts: len(attempts),
		AttemptsByJob: make(map[string]int),
		LastUpdated:   time.Now(),
	}

	var totalSyncTime time.Duration
	syncCount := 0

	for _, a := range attempts {
		switch a.Status {
		case attempt.StatusRunning:
			stats.RunningAttempts++
		case attempt.StatusSucceeded:
			stats.SucceededAttempts++
		case attempt.StatusFailed:
			stats.FailedAttempts++
		case attempt.StatusCancelled:
			stats.CancelledAttempts++
		}

		stats.AttemptsByJob[a.JobID]++

		if a.IsTerminal() {
			totalSyncTime += a.Duration()
			syncCount++
		}
	}

	if syncCount > 0 {
		avgSync := totalSyncTime / time.Duration(syncCount)
		stats.AverageSyncTime = avgSync.Round(time.Millisecond).String()
	} else {
		stats.AverageSyncTime = "N/A"
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) GetRecentAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := d.store.GetAllSnapshots()
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cutoff := time.Now().Add(-24 * time.Hour).Unix()
	history := []AttemptHistory{}

	for _, a := range attempts {
		if !a.IsTerminal() {
			continue
		}
		if a.UpdatedAt < cutoff {
			continue
		}

		history = append(history, AttemptHistory{
			AttemptID: a.ID,
			JobID:     a.JobID,
			Status:    a.Status,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
			Duration:  a.Duration().String(),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, history)
}

// GetSummary serves the per-job aggregation from the attempt history in
// Postgres; it is unavailable when the server runs without a repository.
func (d *Dashboard) GetSummary(w http.ResponseWriter, r *http.Request) {
	if d.repo == nil {
		httputil.WriteJSONError(w, "History store not configured", http.StatusServiceUnavailable)
		return
	}

	summaries, err := d.repo.GetSyncSummary(r.Context(), 24)
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summaries)
}
