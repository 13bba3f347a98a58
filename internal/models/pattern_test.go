package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIPattern_ApplySuccess(t *testing.T) {
	p := &APIPattern{Metrics: PatternMetrics{Confidence: 0.5}}
	now := time.Now()

	p.ApplySuccess(0.1, now)

	assert.InDelta(t, 0.55, p.Metrics.Confidence, 1e-9)
	assert.Equal(t, 1, p.Metrics.SuccessCount)
	assert.Equal(t, now, p.Metrics.LastSuccess)
}

func TestAPIPattern_ApplyFailure(t *testing.T) {
	p := &APIPattern{Metrics: PatternMetrics{Confidence: 0.5}}

	p.ApplyFailure(0.2, time.Now())

	assert.InDelta(t, 0.4, p.Metrics.Confidence, 1e-9)
	assert.Equal(t, 1, p.Metrics.FailureCount)
}

func TestAPIPattern_Eligible(t *testing.T) {
	now := time.Now()

	eligible := &APIPattern{
		Metrics: PatternMetrics{Confidence: 0.8, SuccessCount: 5, LastSuccess: now.Add(-time.Hour)},
	}
	assert.True(t, eligible.Eligible(0.7, 3, 14*24*time.Hour))

	lowConfidence := &APIPattern{
		Metrics: PatternMetrics{Confidence: 0.5, SuccessCount: 10, LastSuccess: now},
	}
	assert.False(t, lowConfidence.Eligible(0.7, 3, 14*24*time.Hour))

	tooFewSuccesses := &APIPattern{
		Metrics: PatternMetrics{Confidence: 0.9, SuccessCount: 1, LastSuccess: now},
	}
	assert.False(t, tooFewSuccesses.Eligible(0.7, 3, 14*24*time.Hour))

	stale := &APIPattern{
		Metrics: PatternMetrics{Confidence: 0.9, SuccessCount: 10, LastSuccess: now.Add(-30 * 24 * time.Hour)},
	}
	assert.False(t, stale.Eligible(0.7, 3, 14*24*time.Hour))

	neverSucceeded := &APIPattern{
		Metrics: PatternMetrics{Confidence: 0.9, SuccessCount: 10},
	}
	assert.False(t, neverSucceeded.Eligible(0.7, 3, 14*24*time.Hour))
}

func TestDomainContext_RecordFetch(t *testing.T) {
	dc := NewDomainContext("example.com")
	now := time.Now().Unix()

	dc.RecordFetch(RecentFetch{ID: "1", TimestampUnix: now, Success: true})
	dc.RecordFetch(RecentFetch{ID: "2", TimestampUnix: now, Success: false})

	snap := dc.Snapshot()
	assert.Equal(t, int64(2), snap.TotalAttempts)
	assert.Equal(t, int64(1), snap.TotalSuccesses)
	assert.InDelta(t, 0.5, snap.RollingSuccessRate, 1e-9)
}

func TestDomainContext_FormEviction(t *testing.T) {
	dc := NewDomainContext("example.com")

	for i := 0; i < 25; i++ {
		dc.AddForm(&ExtractedForm{
			FormID:        string(rune('a' + i)),
			FirstSeenUnix: int64(i),
		})
	}

	dc.mu.RLock()
	count := len(dc.Forms)
	dc.mu.RUnlock()

	require.LessOrEqual(t, count, 20) // default MaxForms
}
