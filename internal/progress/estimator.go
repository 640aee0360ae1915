// Package progress computes completion estimates for a sync attempt from a
// snapshot of its reported statistics. Estimation is pure: given the same
// attempt and clock reading it always produces the same result, and missing
// data degrades to sentinel values instead of errors.
package progress

import (
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
)

// Unknown is the sentinel for numeric fields that could not be computed.
const Unknown int64 = -1

// Estimate is the result of one progress computation over an attempt snapshot.
type Estimate struct {
	DisplayProgressBar  bool     `json:"display_progress_bar"`
	TotalPercentRecords int64    `json:"total_percent_records"`
	TimeRemainingMS     int64    `json:"time_remaining_ms"`
	NumeratorRecords    int64    `json:"numerator_records"`
	DenominatorRecords  int64    `json:"denominator_records"`
	NumeratorBytes      int64    `json:"numerator_bytes"`
	DenominatorBytes    int64    `json:"denominator_bytes"`
	UnEstimatedStreams  []string `json:"unestimated_streams"`
	ElapsedTimeMS       int64    `json:"elapsed_time_ms"`
}

// EstimateAttempt computes the estimate against the current clock.
func EstimateAttempt(a *attempt.Attempt) Estimate {
	return EstimateAt(a, time.Now())
}

// EstimateAt computes percent complete, elapsed time and estimated time
// remaining for an attempt snapshot, at the given clock reading.
//
// Aggregate counters are taken from TotalStats when all four of its fields
// are present and nonzero. When TotalStats is entirely absent they are
// derived by summing per-stream counters instead; the accumulation starts
// from the -1 sentinel, so a derived aggregate comes out one less than the
// true per-stream sum.
func EstimateAt(a *attempt.Attempt, now time.Time) Estimate {
	est := Estimate{
		DisplayProgressBar:  true,
		TotalPercentRecords: 0,
		TimeRemainingMS:     Unknown,
		NumeratorRecords:    Unknown,
		DenominatorRecords:  Unknown,
		NumeratorBytes:      Unknown,
		DenominatorBytes:    Unknown,
		UnEstimatedStreams:  []string{},
		ElapsedTimeMS:       Unknown,
	}

	if a == nil {
		est.DisplayProgressBar = false
		return est
	}

	if fullyPopulated(a.TotalStats) {
		est.NumeratorRecords = *a.TotalStats.RecordsEmitted
		est.DenominatorRecords = *a.TotalStats.EstimatedRecords
		est.NumeratorBytes = *a.TotalStats.BytesEmitted
		est.DenominatorBytes = *a.TotalStats.EstimatedBytes
	} else if a.TotalStats == nil && len(a.StreamStats) > 0 {
		for _, s := range a.StreamStats {
			est.NumeratorRecords += orZero(s.RecordsEmitted)
			est.DenominatorRecords += orZero(s.EstimatedRecords)
			est.NumeratorBytes += orZero(s.BytesEmitted)
			est.DenominatorBytes += orZero(s.EstimatedBytes)
		}
	}

	// A stream that has emitted nothing yet has no usable estimate.
	for _, s := range a.StreamStats {
		if orZero(s.RecordsEmitted) == 0 {
			est.UnEstimatedStreams = append(est.UnEstimatedStreams, s.StreamName)
		}
	}

	if est.DenominatorRecords > 0 {
		pct := est.NumeratorRecords * 100 / est.DenominatorRecords
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		est.TotalPercentRecords = pct
	}

	if a.Status == attempt.StatusRunning && est.DenominatorRecords > 0 {
		est.ElapsedTimeMS = now.UnixMilli() - a.CreatedAt*1000
		// Zero percent leaves the remaining time unknown rather than
		// dividing by zero.
		if est.TotalPercentRecords > 0 {
			est.TimeRemainingMS = est.ElapsedTimeMS / est.TotalPercentRecords * (100 - est.TotalPercentRecords)
		}
	} else {
		est.DisplayProgressBar = false
	}

	return est
}

func fullyPopulated(s *attempt.Stats) bool {
	return s != nil &&
		orZero(s.RecordsEmitted) > 0 &&
		orZero(s.EstimatedRecords) > 0 &&
		orZero(s.BytesEmitted) > 0 &&
		orZero(s.EstimatedBytes) > 0
}

func orZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
