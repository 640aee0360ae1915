package main

import (
	"log"
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/metrics"
	"github.com/EastAgile/airbyte/internal/progress"
	"github.com/EastAgile/airbyte/internal/store"
)

func startMetricsCollector(s *store.Store) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		updateAttemptMetrics(s)
	}
}

func updateAttemptMetrics(s *store.Store) {
	attempts, err := s.GetAllSnapshots()
	if err != nil {
		log.Printf("Failed to get snapshots for metrics: %v", err)
		return
	}

	byStatus := make(map[attempt.Status]int)
	for _, a := range attempts {
		byStatus[a.Status]++

		if a.Status == attempt.StatusRunning {
			metrics.UpdateProgressGauges(a.JobID, progress.EstimateAttempt(a))
		}
	}

	metrics.UpdateAttemptGauges(byStatus)

	depth, err := s.UpdateQueueDepth()
	if err == nil {
		metrics.UpdateUpdateQueueDepth(depth)
	}
}
