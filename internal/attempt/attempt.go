// Package attempt defines the core sync-attempt domain model shared by the
// store, persistence and progress layers. It contains attempt metadata,
// status definitions, per-stream statistics and serialization helpers.
package attempt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	Status string

	// Stats holds the emitted/estimated counters reported for a sync.
	// A nil field means the value is unknown, which is distinct from zero.
	Stats struct {
		RecordsEmitted   *int64 `json:"records_emitted,omitempty"`
		EstimatedRecords *int64 `json:"estimated_records,omitempty"`
		BytesEmitted     *int64 `json:"bytes_emitted,omitempty"`
		EstimatedBytes   *int64 `json:"estimated_bytes,omitempty"`
	}

	// StreamStats carries the counters of one named stream within an attempt.
	StreamStats struct {
		StreamName string `json:"stream_name"`
		Stats
	}

	Attempt struct {
		ID          string        `json:"id"`
		JobID       string        `json:"job_id"`
		Status      Status        `json:"status"`
		CreatedAt   int64         `json:"created_at"`
		UpdatedAt   int64         `json:"updated_at"`
		TotalStats  *Stats        `json:"total_stats,omitempty"`
		StreamStats []StreamStats `json:"stream_stats,omitempty"`
		TargetLSN   string        `json:"target_lsn,omitempty"`
	}
)

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func NewAttempt(jobID string) *Attempt {
	now := time.Now().Unix()
	return &Attempt{
		ID:        uuid.New().String(),
		JobID:     jobID,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the attempt has finished, whatever the outcome.
func (a *Attempt) IsTerminal() bool {
	switch a.Status {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Duration returns how long the attempt ran, based on its timestamps.
func (a *Attempt) Duration() time.Duration {
	return time.Duration(a.UpdatedAt-a.CreatedAt) * time.Second
}

func (a *Attempt) ToJSON() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}

	return string(data), err
}

func FromJSON(data string) (*Attempt, error) {
	var a Attempt
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, err
	}

	return &a, nil
}

// Int64 returns a pointer to v, for building optional stats fields.
func Int64(v int64) *int64 {
	return &v
}
