// Package store keeps attempt snapshots and pending stats updates in Redis.
// Snapshots are the latest known state of each attempt, read by the API on
// every render tick; updates form an ordered queue drained by the worker.
package store

import (
	"context"
	"fmt"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotsKey     = "attempt_snapshots"
	jobLatestKey     = "job_latest_attempts"
	updateQueueKey   = "stats_updates"
	updatePayloadKey = "stats_update_payloads"
)

type Store struct {
	client *redis.Client
	repo   repository.AttemptRepository
	ctx    context.Context
}

// NewStore connects to Redis. The repository is optional; when present,
// snapshot writes are mirrored to Postgres.
func NewStore(redisAddr string, repo repository.AttemptRepository) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client: client,
		repo:   repo,
		ctx:    ctx,
	}, nil
}

// SaveSnapshot stores the latest state of an attempt and tracks it as the
// most recent attempt of its job.
func (s *Store) SaveSnapshot(a *attempt.Attempt) error {
	snapshotJSON, err := a.ToJSON()
	if err != nil {
		return err
	}

	if err := s.client.HSet(s.ctx, snapshotsKey, a.ID, snapshotJSON).Err(); err != nil {
		return err
	}

	if err := s.client.HSet(s.ctx, jobLatestKey, a.JobID, a.ID).Err(); err != nil {
		return err
	}

	if s.repo != nil {
		if err := s.repo.SaveAttempt(s.ctx, a); err != nil {
			return fmt.Errorf("failed to persist attempt %s: %w", a.ID, err)
		}
	}

	return nil
}

func (s *Store) GetSnapshot(attemptID string) (*attempt.Attempt, error) {
	snapshotJSON, err := s.client.HGet(s.ctx, snapshotsKey, attemptID).Result()
	if err != nil {
		return nil, err
	}

	return attempt.FromJSON(snapshotJSON)
}

// LatestForJob returns the snapshot of the job's most recent attempt.
func (s *Store) LatestForJob(jobID string) (*attempt.Attempt, error) {
	attemptID, err := s.client.HGet(s.ctx, jobLatestKey, jobID).Result()
	if err != nil {
		return nil, err
	}

	return s.GetSnapshot(attemptID)
}

func (s *Store) GetAllSnapshots() ([]*attempt.Attempt, error) {
	snapshotMap, err := s.client.HGetAll(s.ctx, snapshotsKey).Result()
	if err != nil {
		return nil, err
	}

	attempts := make([]*attempt.Attempt, 0, len(snapshotMap))
	for _, snapshotJSON := range snapshotMap {
		a, err := attempt.FromJSON(snapshotJSON)
		if err != nil {
			continue
		}
		attempts = append(attempts, a)
	}

	return attempts, nil
}

// EnqueueUpdate queues a stats update for the ingestion worker, ordered by
// emission time.
func (s *Store) EnqueueUpdate(u *StatsUpdate) error {
	updateJSON, err := u.ToJSON()
	if err != nil {
		return err
	}

	if err := s.client.HSet(s.ctx, updatePayloadKey, u.ID, updateJSON).Err(); err != nil {
		return err
	}

	return s.client.ZAdd(s.ctx, updateQueueKey, redis.Z{
		Score:  float64(u.EmittedAt),
		Member: u.ID,
	}).Err()
}

// DequeueUpdate pops the oldest pending update, or returns nil when the
// queue is empty.
func (s *Store) DequeueUpdate() (*StatsUpdate, error) {
	results, err := s.client.ZRangeByScore(s.ctx, updateQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: 1,
	}).Result()

	if err != nil || len(results) == 0 {
		return nil, err
	}

	updateID := results[0]

	s.client.ZRem(s.ctx, updateQueueKey, updateID)

	updateJSON, err := s.client.HGet(s.ctx, updatePayloadKey, updateID).Result()
	if err != nil {
		return nil, err
	}

	s.client.HDel(s.ctx, updatePayloadKey, updateID)

	return UpdateFromJSON(updateJSON)
}

// UpdateQueueDepth reports how many stats updates are waiting.
func (s *Store) UpdateQueueDepth() (int64, error) {
	return s.client.ZCard(s.ctx, updateQueueKey).Result()
}

func (s *Store) Close() error {
	return s.client.Close()
}
