package stats

import (
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordAggregatesPerTenantPerTier(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()

	c.Record("tenant-a", "https://example.com/1", now, models.DecisionTrace{
		Tiers: []models.TierAttempt{
			{Tier: models.TierIntelligence, Duration: 100 * time.Millisecond, Success: true},
		},
	})
	c.Record("tenant-a", "https://example.com/2", now.Add(time.Second), models.DecisionTrace{
		Tiers: []models.TierAttempt{
			{Tier: models.TierIntelligence, Duration: 300 * time.Millisecond, Success: false},
		},
	})

	snap := c.TenantTierStats("tenant-a")
	require.Contains(t, snap, models.TierIntelligence)
	tc := snap[models.TierIntelligence]
	assert.EqualValues(t, 2, tc.Attempts)
	assert.EqualValues(t, 1, tc.Successes)
	assert.EqualValues(t, 1, tc.Failures)
	assert.InDelta(t, 0.5, tc.SuccessRate(), 0.001)
	assert.Equal(t, 200*time.Millisecond, tc.AvgDuration)
}

func TestCollector_TenantsAreIsolated(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()
	c.Record("tenant-a", "https://a.test", now, models.DecisionTrace{
		Tiers: []models.TierAttempt{{Tier: models.TierLightweight, Duration: time.Second, Success: true}},
	})

	assert.Empty(t, c.TenantTierStats("tenant-b"))
	assert.NotEmpty(t, c.TenantTierStats("tenant-a"))
}

func TestCollector_RecentTracesOrderedNewestFirstAndBounded(t *testing.T) {
	c := NewCollector(2)
	base := time.Now()
	c.Record("t", "url-1", base, models.DecisionTrace{})
	c.Record("t", "url-2", base.Add(time.Second), models.DecisionTrace{})
	c.Record("t", "url-3", base.Add(2*time.Second), models.DecisionTrace{})

	recent := c.RecentTraces(0)
	require.Len(t, recent, 2, "ring capacity is 2, oldest entry must have been overwritten")
	assert.Equal(t, "url-3", recent[0].URL)
	assert.Equal(t, "url-2", recent[1].URL)
}

func TestCollector_RecentTracesRespectsLimit(t *testing.T) {
	c := NewCollector(10)
	base := time.Now()
	for i := 0; i < 5; i++ {
		c.Record("t", "url", base.Add(time.Duration(i)*time.Second), models.DecisionTrace{})
	}
	assert.Len(t, c.RecentTraces(2), 2)
	assert.Len(t, c.RecentTraces(100), 5)
}
