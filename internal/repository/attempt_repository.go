package repository

import (
	"context"

	"github.com/EastAgile/airbyte/internal/attempt"
)

type AttemptRepository interface {
	SaveAttempt(ctx context.Context, a *attempt.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (*attempt.Attempt, error)
	UpdateStatus(ctx context.Context, attemptID string, status attempt.Status, updatedAt int64) error
	ListRecentAttempts(ctx context.Context, limit int) ([]*attempt.Attempt, error)
	ListAttemptsByJob(ctx context.Context, jobID string, limit int) ([]*attempt.Attempt, error)
	GetSyncSummary(ctx context.Context, hours int) ([]SyncSummary, error)
	Close() error
}
