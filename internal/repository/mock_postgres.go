package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/EastAgile/airbyte/internal/attempt"
)

// MockAttemptRepository is an in-memory AttemptRepository for tests.
type MockAttemptRepository struct {
	mu                sync.Mutex
	SaveAttemptCalls  []SaveAttemptCall
	GetAttemptCalls   []string
	UpdateStatusCalls []UpdateStatusCall
	Attempts          map[string]*attempt.Attempt
	Summaries         []SyncSummary

	SaveAttemptError  error
	GetAttemptError   error
	UpdateStatusError error
	ListError         error
	SummaryError      error
}

type SaveAttemptCall struct {
	Attempt *attempt.Attempt
}

type UpdateStatusCall struct {
	AttemptID string
	Status    attempt.Status
	UpdatedAt int64
}

func NewMockAttemptRepository() *MockAttemptRepository {
	return &MockAttemptRepository{
		Attempts: make(map[string]*attempt.Attempt),
	}
}

func (m *MockAttemptRepository) SaveAttempt(_ context.Context, a *attempt.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveAttemptError != nil {
		return m.SaveAttemptError
	}

	copied := *a
	m.SaveAttemptCalls = append(m.SaveAttemptCalls, SaveAttemptCall{Attempt: &copied})
	m.Attempts[a.ID] = &copied
	return nil
}

func (m *MockAttemptRepository) GetAttempt(_ context.Context, attemptID string) (*attempt.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetAttemptCalls = append(m.GetAttemptCalls, attemptID)
	if m.GetAttemptError != nil {
		return nil, m.GetAttemptError
	}

	a, ok := m.Attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("attempt %s not found", attemptID)
	}
	return a, nil
}

func (m *MockAttemptRepository) UpdateStatus(_ context.Context, attemptID string, status attempt.Status, updatedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}

	m.UpdateStatusCalls = append(m.UpdateStatusCalls, UpdateStatusCall{
		AttemptID: attemptID,
		Status:    status,
		UpdatedAt: updatedAt,
	})
	if a, ok := m.Attempts[attemptID]; ok {
		a.Status = status
		a.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAttemptRepository) ListRecentAttempts(_ context.Context, limit int) ([]*attempt.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	attempts := make([]*attempt.Attempt, 0, len(m.Attempts))
	for _, a := range m.Attempts {
		if len(attempts) >= limit {
			break
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (m *MockAttemptRepository) ListAttemptsByJob(_ context.Context, jobID string, limit int) ([]*attempt.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	var attempts []*attempt.Attempt
	for _, a := range m.Attempts {
		if a.JobID != jobID || len(attempts) >= limit {
			continue
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (m *MockAttemptRepository) GetSyncSummary(_ context.Context, _ int) ([]SyncSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	return m.Summaries, nil
}

func (m *MockAttemptRepository) Close() error {
	return nil
}

func (m *MockAttemptRepository) SaveCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SaveAttemptCalls)
}

func (m *MockAttemptRepository) WasAttemptSaved(attemptID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Attempts[attemptID]
	return ok
}
