// Package repository provides PostgreSQL persistence for sync attempts and
// their per-stream statistics.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	_ "github.com/lib/pq"
)

type PostgresAttemptRepository struct {
	db *sql.DB
}

// SyncSummary is one aggregation bucket of the attempt history, grouped by
// job and status.
type SyncSummary struct {
	JobID          string  `json:"job_id"`
	Status         string  `json:"status"`
	Count          int     `json:"count"`
	AvgDurationSec float64 `json:"avg_duration_sec"`
	MaxDurationSec int     `json:"max_duration_sec"`
	AvgRecords     float64 `json:"avg_records"`
}

func NewPostgresAttemptRepository(connectionString string) (*PostgresAttemptRepository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresAttemptRepository{db: db}, nil
}

func (r *PostgresAttemptRepository) SaveAttempt(ctx context.Context, a *attempt.Attempt) error {
	query := `
		INSERT INTO attempts (
			attempt_id, job_id, status, created_at, updated_at,
			records_emitted, estimated_records, bytes_emitted, estimated_bytes,
			target_lsn
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (attempt_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			records_emitted = EXCLUDED.records_emitted,
			estimated_records = EXCLUDED.estimated_records,
			bytes_emitted = EXCLUDED.bytes_emitted,
			estimated_bytes = EXCLUDED.estimated_bytes,
			target_lsn = EXCLUDED.target_lsn
	`

	var records, estRecords, bytes, estBytes any
	if a.TotalStats != nil {
		records = int64Arg(a.TotalStats.RecordsEmitted)
		estRecords = int64Arg(a.TotalStats.EstimatedRecords)
		bytes = int64Arg(a.TotalStats.BytesEmitted)
		estBytes = int64Arg(a.TotalStats.EstimatedBytes)
	}

	var targetLSN any
	if a.TargetLSN != "" {
		targetLSN = a.TargetLSN
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.JobID,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
		records,
		estRecords,
		bytes,
		estBytes,
		targetLSN,
	)
	if err != nil {
		return err
	}

	return r.saveStreamStats(ctx, a)
}

func (r *PostgresAttemptRepository) saveStreamStats(ctx context.Context, a *attempt.Attempt) error {
	query := `
		INSERT INTO attempt_stream_stats (
			attempt_id, stream_name, position,
			records_emitted, estimated_records, bytes_emitted, estimated_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (attempt_id, stream_name) DO UPDATE SET
			position = EXCLUDED.position,
			records_emitted = EXCLUDED.records_emitted,
			estimated_records = EXCLUDED.estimated_records,
			bytes_emitted = EXCLUDED.bytes_emitted,
			estimated_bytes = EXCLUDED.estimated_bytes
	`

	for i, s := range a.StreamStats {
		_, err := r.db.ExecContext(
			ctx,
			query,
			a.ID,
			s.StreamName,
			i,
			int64Arg(s.RecordsEmitted),
			int64Arg(s.EstimatedRecords),
			int64Arg(s.BytesEmitted),
			int64Arg(s.EstimatedBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to save stats for stream %s: %w", s.StreamName, err)
		}
	}

	return nil
}

func (r *PostgresAttemptRepository) GetAttempt(ctx context.Context, attemptID string) (*attempt.Attempt, error) {
	query := `
		SELECT
			attempt_id, job_id, status, created_at, updated_at,
			records_emitted, estimated_records, bytes_emitted, estimated_bytes,
			target_lsn
		FROM attempts
		WHERE attempt_id = $1
	`

	a, err := scanAttempt(r.db.QueryRowContext(ctx, query, attemptID))
	if err != nil {
		return nil, err
	}

	streams, err := r.getStreamStats(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	a.StreamStats = streams

	return a, nil
}

func (r *PostgresAttemptRepository) getStreamStats(ctx context.Context, attemptID string) ([]attempt.StreamStats, error) {
	query := `
		SELECT
			stream_name, records_emitted, estimated_records,
			bytes_emitted, estimated_bytes
		FROM attempt_stream_stats
		WHERE attempt_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	var streams []attempt.StreamStats
	for rows.Next() {
		var s attempt.StreamStats
		var records, estRecords, bytes, estBytes sql.NullInt64

		if err := rows.Scan(
			&s.StreamName,
			&records,
			&estRecords,
			&bytes,
			&estBytes,
		); err != nil {
			return nil, err
		}

		s.RecordsEmitted = int64Ptr(records)
		s.EstimatedRecords = int64Ptr(estRecords)
		s.BytesEmitted = int64Ptr(bytes)
		s.EstimatedBytes = int64Ptr(estBytes)
		streams = append(streams, s)
	}

	return streams, rows.Err()
}

func (r *PostgresAttemptRepository) UpdateStatus(ctx context.Context, attemptID string, status attempt.Status, updatedAt int64) error {
	query := `
		UPDATE attempts
		SET status = $1,
		    updated_at = $2
		WHERE attempt_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, updatedAt, attemptID)

	return err
}

func (r *PostgresAttemptRepository) ListRecentAttempts(ctx context.Context, limit int) ([]*attempt.Attempt, error) {
	query := `
		SELECT
			attempt_id, job_id, status, created_at, updated_at,
			records_emitted, estimated_records, bytes_emitted, estimated_bytes,
			target_lsn
		FROM attempts
		ORDER BY created_at DESC
		LIMIT $1
	`

	return r.queryAttempts(ctx, query, limit)
}

func (r *PostgresAttemptRepository) ListAttemptsByJob(ctx context.Context, jobID string, limit int) ([]*attempt.Attempt, error) {
	query := `
		SELECT
			attempt_id, job_id, status, created_at, updated_at,
			records_emitted, estimated_records, bytes_emitted, estimated_bytes,
			target_lsn
		FROM attempts
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	return r.queryAttempts(ctx, query, jobID, limit)
}

func (r *PostgresAttemptRepository) queryAttempts(ctx context.Context, query string, args ...any) ([]*attempt.Attempt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	var attempts []*attempt.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}

		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

func (r *PostgresAttemptRepository) GetSyncSummary(ctx context.Context, hours int) ([]SyncSummary, error) {
	query := `
		SELECT
			job_id, status, COUNT(*) as count,
			COALESCE(AVG(updated_at - created_at), 0) as avg_duration_sec,
			COALESCE(MAX(updated_at - created_at), 0) as max_duration_sec,
			COALESCE(AVG(records_emitted), 0) as avg_records
		FROM attempts
		WHERE created_at > EXTRACT(EPOCH FROM NOW() - INTERVAL '1 hour' * $1)
		GROUP BY job_id, status
		ORDER BY job_id, status
	`
	rows, err := r.db.QueryContext(ctx, query, hours)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	var summaries []SyncSummary
	for rows.Next() {
		var s SyncSummary
		if err := rows.Scan(
			&s.JobID,
			&s.Status,
			&s.Count,
			&s.AvgDurationSec,
			&s.MaxDurationSec,
			&s.AvgRecords,
		); err != nil {
			return nil, err
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *PostgresAttemptRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresAttemptRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*attempt.Attempt, error) {
	var a attempt.Attempt
	var records, estRecords, bytes, estBytes sql.NullInt64
	var targetLSN sql.NullString

	if err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&records,
		&estRecords,
		&bytes,
		&estBytes,
		&targetLSN,
	); err != nil {
		return nil, err
	}

	if records.Valid || estRecords.Valid || bytes.Valid || estBytes.Valid {
		a.TotalStats = &attempt.Stats{
			RecordsEmitted:   int64Ptr(records),
			EstimatedRecords: int64Ptr(estRecords),
			BytesEmitted:     int64Ptr(bytes),
			EstimatedBytes:   int64Ptr(estBytes),
		}
	}
	if targetLSN.Valid {
		a.TargetLSN = targetLSN.String
	}

	return &a, nil
}

func int64Arg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
