// Package worker provides the background processor that drains stats updates
// from the store and applies them to attempt snapshots.
package worker

import (
	"log"
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/EastAgile/airbyte/internal/cdc"
	"github.com/EastAgile/airbyte/internal/metrics"
	"github.com/EastAgile/airbyte/internal/progress"
	"github.com/EastAgile/airbyte/internal/store"
)

type Notifier interface {
	NotifyAttemptFinished(a *attempt.Attempt) error
}

type Worker struct {
	id           string
	store        *store.Store
	notifier     Notifier
	stop         chan bool
	pollInterval time.Duration
}

func NewWorker(id string, s *store.Store, n Notifier) *Worker {
	return &Worker{
		id:           id,
		store:        s,
		notifier:     n,
		stop:         make(chan bool),
		pollInterval: time.Second,
	}
}

func (w *Worker) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

func (w *Worker) Start() {
	log.Printf("Worker %s started", w.id)

	for {
		select {
		case <-w.stop:
			log.Printf("Worker %s stopped", w.id)
			return
		default:
			update, err := w.store.DequeueUpdate()
			if err != nil || update == nil {
				time.Sleep(w.pollInterval)
				continue
			}

			w.applyUpdate(update)
		}
	}
}

func (w *Worker) applyUpdate(u *store.StatsUpdate) {
	a, err := w.store.GetSnapshot(u.AttemptID)
	if err != nil {
		log.Printf("Worker %s dropping update %s: unknown attempt %s: %v", w.id, u.ID, u.AttemptID, err)
		metrics.RecordUpdateDropped("attempt_missing")
		return
	}

	wasTerminal := a.IsTerminal()

	if u.TotalStats != nil {
		a.TotalStats = u.TotalStats
	}
	if u.StreamStats != nil {
		a.StreamStats = u.StreamStats
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	a.UpdatedAt = u.EmittedAt / 1000

	w.checkTargetPosition(a, u)

	if err := w.store.SaveSnapshot(a); err != nil {
		log.Printf("Worker %s failed to save snapshot for attempt %s: %v", w.id, a.ID, err)
		metrics.RecordUpdateDropped("save_failed")
		return
	}

	metrics.RecordUpdateApplied(a.JobID)
	metrics.UpdateProgressGauges(a.JobID, progress.EstimateAttempt(a))

	if !wasTerminal && a.IsTerminal() {
		w.finishAttempt(a)
	}
}

// checkTargetPosition marks a running CDC attempt as succeeded once the
// reported change-event position reaches the target captured at stream start.
func (w *Worker) checkTargetPosition(a *attempt.Attempt, u *store.StatsUpdate) {
	if u.Position == nil || a.TargetLSN == "" || a.Status != attempt.StatusRunning {
		return
	}

	target, err := cdc.ParseLSN(a.TargetLSN)
	if err != nil {
		log.Printf("Worker %s ignoring malformed target lsn %q on attempt %s: %v", w.id, a.TargetLSN, a.ID, err)
		return
	}

	if cdc.NewTargetPosition(target).Reached(*u.Position) {
		log.Printf("Attempt %s caught up to target lsn %s", a.ID, target)
		a.Status = attempt.StatusSucceeded
		metrics.RecordCatchup(a.JobID)
	}
}

func (w *Worker) finishAttempt(a *attempt.Attempt) {
	log.Printf("Attempt %s finished with status %s", a.ID, a.Status)
	metrics.RecordAttemptFinished(a.JobID, a.Status)

	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyAttemptFinished(a); err != nil {
		log.Printf("Failed to send notification for attempt %s: %v", a.ID, err)
		return
	}
	metrics.RecordNotificationSent(a.Status)
}

func (w *Worker) Stop() {
	w.stop <- true
}
