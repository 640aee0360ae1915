package progress

import (
	"testing"
	"time"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/stretchr/testify/assert"
)

func runningAttempt(createdAt time.Time) *attempt.Attempt {
	return &attempt.Attempt{
		ID:        "attempt-1",
		JobID:     "job-1",
		Status:    attempt.StatusRunning,
		CreatedAt: createdAt.Unix(),
		UpdatedAt: createdAt.Unix(),
	}
}

func TestEstimateAt_NoStats(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now.Add(-10 * time.Second))

	est := EstimateAt(a, now)

	assert.False(t, est.DisplayProgressBar)
	assert.Equal(t, int64(0), est.TotalPercentRecords)
	assert.Equal(t, Unknown, est.NumeratorRecords)
	assert.Equal(t, Unknown, est.DenominatorRecords)
	assert.Equal(t, Unknown, est.NumeratorBytes)
	assert.Equal(t, Unknown, est.DenominatorBytes)
	assert.Equal(t, Unknown, est.ElapsedTimeMS)
	assert.Equal(t, Unknown, est.TimeRemainingMS)
	assert.Empty(t, est.UnEstimatedStreams)
}

func TestEstimateAt_NilAttempt(t *testing.T) {
	est := EstimateAt(nil, time.Now())

	assert.False(t, est.DisplayProgressBar)
	assert.Equal(t, int64(0), est.TotalPercentRecords)
	assert.Empty(t, est.UnEstimatedStreams)
}

func TestEstimateAt_FullAggregateStats(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now.Add(-10 * time.Second))
	a.TotalStats = &attempt.Stats{
		RecordsEmitted:   attempt.Int64(1),
		EstimatedRecords: attempt.Int64(100),
		BytesEmitted:     attempt.Int64(1),
		EstimatedBytes:   attempt.Int64(50),
	}

	est := EstimateAt(a, now)

	assert.True(t, est.DisplayProgressBar)
	assert.Equal(t, int64(1), est.TotalPercentRecords)
	assert.Equal(t, int64(1), est.NumeratorRecords)
	assert.Equal(t, int64(100), est.DenominatorRecords)
	assert.Equal(t, int64(1), est.NumeratorBytes)
	assert.Equal(t, int64(50), est.DenominatorBytes)
	assert.InDelta(t, 10000, est.ElapsedTimeMS, 1500)
	assert.InDelta(t, 990000, est.TimeRemainingMS, 150000)
}

func TestEstimateAt_AggregateWithStreamBreakdown(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now.Add(-10 * time.Second))
	a.TotalStats = &attempt.Stats{
		RecordsEmitted:   attempt.Int64(3),
		EstimatedRecords: attempt.Int64(300),
		BytesEmitted:     attempt.Int64(3),
		EstimatedBytes:   attempt.Int64(300),
	}
	a.StreamStats = []attempt.StreamStats{
		{StreamName: "A", Stats: attempt.Stats{
			RecordsEmitted:   attempt.Int64(1),
			EstimatedRecords: attempt.Int64(100),
			BytesEmitted:     attempt.Int64(1),
			EstimatedBytes:   attempt.Int64(100),
		}},
		{StreamName: "B", Stats: attempt.Stats{
			RecordsEmitted:   attempt.Int64(2),
			EstimatedRecords: attempt.Int64(100),
			BytesEmitted:     attempt.Int64(2),
			EstimatedBytes:   attempt.Int64(100),
		}},
		{StreamName: "C"},
	}

	est := EstimateAt(a, now)

	assert.True(t, est.DisplayProgressBar)
	assert.Equal(t, int64(1), est.TotalPercentRecords)
	assert.Equal(t, int64(3), est.NumeratorRecords)
	assert.Equal(t, int64(300), est.DenominatorRecords)
	assert.Equal(t, []string{"C"}, est.UnEstimatedStreams)
}

func TestEstimateAt_DerivedFromStreams(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now.Add(-5 * time.Second))
	a.StreamStats = []attempt.StreamStats{
		{StreamName: "users", Stats: attempt.Stats{
			RecordsEmitted:   attempt.Int64(50),
			EstimatedRecords: attempt.Int64(100),
			BytesEmitted:     attempt.Int64(500),
			EstimatedBytes:   attempt.Int64(1000),
		}},
		{StreamName: "orders", Stats: attempt.Stats{
			RecordsEmitted:   attempt.Int64(25),
			EstimatedRecords: attempt.Int64(100),
		}},
	}

	est := EstimateAt(a, now)

	// Derived aggregates start from the -1 sentinel, so each comes out one
	// less than the plain per-stream sum.
	assert.Equal(t, int64(74), est.NumeratorRecords)
	assert.Equal(t, int64(199), est.DenominatorRecords)
	assert.Equal(t, int64(499), est.NumeratorBytes)
	assert.Equal(t, int64(999), est.DenominatorBytes)
	assert.True(t, est.DisplayProgressBar)
	assert.Equal(t, int64(37), est.TotalPercentRecords)
	assert.Empty(t, est.UnEstimatedStreams)
}

func TestEstimateAt_PartialAggregateIgnoresStreams(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now)
	// Aggregate present but not fully populated: no derivation happens.
	a.TotalStats = &attempt.Stats{RecordsEmitted: attempt.Int64(10)}
	a.StreamStats = []attempt.StreamStats{
		{StreamName: "users", Stats: attempt.Stats{
			RecordsEmitted:   attempt.Int64(10),
			EstimatedRecords: attempt.Int64(20),
		}},
	}

	est := EstimateAt(a, now)

	assert.False(t, est.DisplayProgressBar)
	assert.Equal(t, Unknown, est.NumeratorRecords)
	assert.Equal(t, Unknown, est.DenominatorRecords)
	assert.Equal(t, int64(0), est.TotalPercentRecords)
}

func TestEstimateAt_ZeroPercentLeavesRemainingUnknown(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now.Add(-time.Minute))
	a.TotalStats = &attempt.Stats{
		RecordsEmitted:   attempt.Int64(1),
		EstimatedRecords: attempt.Int64(1000000),
		BytesEmitted:     attempt.Int64(1),
		EstimatedBytes:   attempt.Int64(1),
	}

	est := EstimateAt(a, now)

	assert.True(t, est.DisplayProgressBar)
	assert.Equal(t, int64(0), est.TotalPercentRecords)
	assert.Equal(t, Unknown, est.TimeRemainingMS)
	assert.Greater(t, est.ElapsedTimeMS, int64(0))
}

func TestEstimateAt_NotRunning(t *testing.T) {
	now := time.Now()

	for _, status := range []attempt.Status{
		attempt.StatusSucceeded,
		attempt.StatusFailed,
		attempt.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			a := runningAttempt(now.Add(-10 * time.Second))
			a.Status = status
			a.TotalStats = &attempt.Stats{
				RecordsEmitted:   attempt.Int64(50),
				EstimatedRecords: attempt.Int64(100),
				BytesEmitted:     attempt.Int64(50),
				EstimatedBytes:   attempt.Int64(100),
			}

			est := EstimateAt(a, now)

			assert.False(t, est.DisplayProgressBar)
			assert.Equal(t, int64(50), est.TotalPercentRecords)
			assert.Equal(t, Unknown, est.ElapsedTimeMS)
			assert.Equal(t, Unknown, est.TimeRemainingMS)
		})
	}
}

func TestEstimateAt_UnEstimatedStreamsPreserveOrder(t *testing.T) {
	now := time.Now()
	a := runningAttempt(now)
	a.StreamStats = []attempt.StreamStats{
		{StreamName: "zeta"},
		{StreamName: "alpha", Stats: attempt.Stats{RecordsEmitted: attempt.Int64(1)}},
		{StreamName: "mid", Stats: attempt.Stats{RecordsEmitted: attempt.Int64(0)}},
		{StreamName: "omega"},
	}

	est := EstimateAt(a, now)

	assert.Equal(t, []string{"zeta", "mid", "omega"}, est.UnEstimatedStreams)
}

func TestEstimateAt_PercentBoundsAndMonotonicity(t *testing.T) {
	now := time.Now()
	prev := int64(-1)

	for emitted := int64(0); emitted <= 120; emitted += 10 {
		a := runningAttempt(now.Add(-time.Second))
		a.TotalStats = &attempt.Stats{
			RecordsEmitted:   attempt.Int64(emitted),
			EstimatedRecords: attempt.Int64(100),
			BytesEmitted:     attempt.Int64(1),
			EstimatedBytes:   attempt.Int64(1),
		}

		est := EstimateAt(a, now)

		assert.GreaterOrEqual(t, est.TotalPercentRecords, int64(0))
		assert.LessOrEqual(t, est.TotalPercentRecords, int64(100))
		assert.GreaterOrEqual(t, est.TotalPercentRecords, prev)
		prev = est.TotalPercentRecords
	}
}

func TestEstimateAttempt_UsesWallClock(t *testing.T) {
	a := runningAttempt(time.Now().Add(-2 * time.Second))
	a.TotalStats = &attempt.Stats{
		RecordsEmitted:   attempt.Int64(50),
		EstimatedRecords: attempt.Int64(100),
		BytesEmitted:     attempt.Int64(1),
		EstimatedBytes:   attempt.Int64(1),
	}

	est := EstimateAttempt(a)

	assert.True(t, est.DisplayProgressBar)
	assert.InDelta(t, 2000, est.ElapsedTimeMS, 1500)
}
