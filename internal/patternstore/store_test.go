package patternstore

import (
	"context"
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Alpha:                 0.1,
		Beta:                  0.2,
		EligibleMinConfidence: 0.7,
		EligibleMinSuccesses:  3,
		EligibleMaxAge:        14 * 24 * time.Hour,
	}
}

func TestStore_UpsertAndFindMatching(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	id, err := s.Upsert(ctx, models.APIPattern{
		URLPatterns: []string{`^https://api\.example\.com/users/[^/]+$`},
		Metrics:     models.PatternMetrics{Confidence: 0.95, SuccessCount: 50, LastSuccess: time.Now()},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	matches, err := s.FindMatchingPatterns(ctx, "https://api.example.com/users/42")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].ID)

	none, err := s.FindMatchingPatterns(ctx, "https://other.example.com/x")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_EligiblePatterns(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	eligibleID, _ := s.Upsert(ctx, models.APIPattern{
		URLPatterns: []string{`^https://x\.com/a$`},
		Metrics:     models.PatternMetrics{Confidence: 0.9, SuccessCount: 10, LastSuccess: time.Now()},
	})
	_, _ = s.Upsert(ctx, models.APIPattern{
		URLPatterns: []string{`^https://x\.com/a$`},
		Metrics:     models.PatternMetrics{Confidence: 0.3, SuccessCount: 10, LastSuccess: time.Now()},
	})

	eligible, err := s.EligiblePatterns(ctx, "https://x.com/a")
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, eligibleID, eligible[0].ID)
}

func TestStore_RecordSuccessAndFailure(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	id, _ := s.Upsert(ctx, models.APIPattern{Metrics: models.PatternMetrics{Confidence: 0.5}})

	require.NoError(t, s.RecordSuccess(ctx, id, "example.com", 100*time.Millisecond))
	s.mu.RLock()
	conf := s.patterns[id].pattern.Metrics.Confidence
	s.mu.RUnlock()
	assert.InDelta(t, 0.55, conf, 1e-9)

	require.NoError(t, s.RecordFailure(ctx, id, "example.com", "timeout"))
	s.mu.RLock()
	conf2 := s.patterns[id].pattern.Metrics.Confidence
	s.mu.RUnlock()
	assert.InDelta(t, 0.55*0.8, conf2, 1e-9)

	intel, err := s.DomainIntelligence(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), intel.TotalAttempts)
	assert.Equal(t, int64(1), intel.TotalSuccesses)
}

func TestStore_BackgroundSweepStartStop(t *testing.T) {
	s := New(testConfig())
	s.StartBackgroundSweep(10 * time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	s.Stop()
	// Stopping twice must not panic or block.
	s.Stop()
}

func TestStore_RecordUnknownPatternErrors(t *testing.T) {
	s := New(testConfig())
	err := s.RecordSuccess(context.Background(), "does-not-exist", "example.com", 0)
	assert.Error(t, err)
}

func TestStore_GC(t *testing.T) {
	cfg := testConfig()
	cfg.StaleGCMaxAge = time.Hour
	cfg.StaleGCMaxConfidence = 0.3
	s := New(cfg)
	ctx := context.Background()

	staleID, _ := s.Upsert(ctx, models.APIPattern{Metrics: models.PatternMetrics{Confidence: 0.1}})
	s.mu.RLock()
	s.patterns[staleID].pattern.UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.RUnlock()

	freshID, _ := s.Upsert(ctx, models.APIPattern{Metrics: models.PatternMetrics{Confidence: 0.9, SuccessCount: 5}})

	removed := s.GC()
	assert.Equal(t, 1, removed)

	s.mu.RLock()
	_, staleStillThere := s.patterns[staleID]
	_, freshStillThere := s.patterns[freshID]
	s.mu.RUnlock()
	assert.False(t, staleStillThere)
	assert.True(t, freshStillThere)
}
