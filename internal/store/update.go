package store

import (
	"encoding/json"
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/cdc"
	"github.com/google/uuid"
)

// StatsUpdate is one progress report for an attempt, pushed by a connector
// and drained by the ingestion worker. Every field except the ids is
// optional; absent fields leave the attempt untouched.
type StatsUpdate struct {
	ID          string                `json:"id"`
	AttemptID   string                `json:"attempt_id"`
	JobID       string                `json:"job_id"`
	Status      *attempt.Status       `json:"status,omitempty"`
	TotalStats  *attempt.Stats        `json:"total_stats,omitempty"`
	StreamStats []attempt.StreamStats `json:"stream_stats,omitempty"`
	Position    *cdc.EventPosition    `json:"position,omitempty"`
	EmittedAt   int64                 `json:"emitted_at"`
}

func NewStatsUpdate(attemptID, jobID string) *StatsUpdate {
	return &StatsUpdate{
		ID:        uuid.New().String(),
		AttemptID: attemptID,
		JobID:     jobID,
		EmittedAt: time.Now().UnixMilli(),
	}
}

func (u *StatsUpdate) ToJSON() (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}

	return string(data), err
}

func UpdateFromJSON(data string) (*StatsUpdate, error) {
	var u StatsUpdate
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, err
	}

	return &u, nil
}
