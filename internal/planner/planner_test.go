package planner

import (
	"context"
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatterns struct {
	eligible []models.APIPattern
	intel    models.DomainIntelligence
}

func (f *fakePatterns) EligiblePatterns(ctx context.Context, canonicalURL string) ([]models.APIPattern, error) {
	return f.eligible, nil
}

func (f *fakePatterns) DomainIntelligence(ctx context.Context, domain string) (models.DomainIntelligence, error) {
	return f.intel, nil
}

type fakeSelectors struct{ chains []models.SelectorChain }

func (f *fakeSelectors) CandidateSelectors(domain string) []models.SelectorChain { return f.chains }

type fakeCooldown struct{ active bool }

func (f *fakeCooldown) DomainInCooldown(tenant, domain string) bool { return f.active }

func TestPlan_InvalidURL(t *testing.T) {
	p := New(DefaultConfig(), &fakePatterns{}, &fakeSelectors{}, nil)
	_, err := p.Plan(context.Background(), "", "not a url", models.RequestConstraints{})
	assert.Error(t, err)
}

func TestPlan_DefaultSequenceNoPatterns(t *testing.T) {
	p := New(DefaultConfig(), &fakePatterns{}, &fakeSelectors{}, nil)
	plan, err := p.Plan(context.Background(), "", "https://example.com/page", models.RequestConstraints{})
	require.NoError(t, err)
	assert.Equal(t, []models.Tier{models.TierIntelligence, models.TierLightweight, models.TierPlaywright}, plan.TierSequence)
	assert.False(t, plan.Confidence.Factors.APIDiscovered)
}

func TestPlan_PrependsPatternInvokeWhenEligible(t *testing.T) {
	patterns := &fakePatterns{eligible: []models.APIPattern{{ID: "p1"}}}
	p := New(DefaultConfig(), patterns, &fakeSelectors{}, nil)
	plan, err := p.Plan(context.Background(), "", "https://example.com/api/users", models.RequestConstraints{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.TierSequence)
	assert.Equal(t, models.TierPatternInvoke, plan.TierSequence[0])
	assert.True(t, plan.Confidence.Factors.APIDiscovered)
}

func TestPlan_CooldownOmitsPatternInvoke(t *testing.T) {
	patterns := &fakePatterns{eligible: []models.APIPattern{{ID: "p1"}}}
	p := New(DefaultConfig(), patterns, &fakeSelectors{}, &fakeCooldown{active: true})
	plan, err := p.Plan(context.Background(), "tenant1", "https://example.com/api/users", models.RequestConstraints{})
	require.NoError(t, err)
	assert.NotContains(t, plan.TierSequence, models.TierPatternInvoke)
}

func TestPlan_MaxCostTierTruncates(t *testing.T) {
	p := New(DefaultConfig(), &fakePatterns{}, &fakeSelectors{}, nil)
	plan, err := p.Plan(context.Background(), "", "https://example.com/page", models.RequestConstraints{MaxCostTier: models.TierLightweight})
	require.NoError(t, err)
	assert.Equal(t, []models.Tier{models.TierIntelligence, models.TierLightweight}, plan.TierSequence)
}

func TestPlan_MaxLatencyExcludesAllTiers(t *testing.T) {
	p := New(DefaultConfig(), &fakePatterns{}, &fakeSelectors{}, nil)
	plan, err := p.Plan(context.Background(), "", "https://example.com/page", models.RequestConstraints{MaxLatencyMs: 1})
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Equal(t, 0.0, plan.Confidence.Overall)
}

func TestPlan_BotDetectionLikelyLowersConfidence(t *testing.T) {
	noBot := &fakePatterns{intel: models.DomainIntelligence{TotalSuccesses: 10}}
	withBot := &fakePatterns{intel: models.DomainIntelligence{TotalSuccesses: 10, BotDetectionFailures: 5}}

	p1 := New(DefaultConfig(), noBot, &fakeSelectors{}, nil)
	p2 := New(DefaultConfig(), withBot, &fakeSelectors{}, nil)

	plan1, err := p1.Plan(context.Background(), "", "https://example.com/page", models.RequestConstraints{})
	require.NoError(t, err)
	plan2, err := p2.Plan(context.Background(), "", "https://example.com/page", models.RequestConstraints{})
	require.NoError(t, err)

	assert.True(t, plan2.Confidence.Factors.BotDetectionLikely)
	assert.Less(t, plan2.Confidence.Overall, plan1.Confidence.Overall)
}

func TestPlan_CompletesWithinPreviewBudget(t *testing.T) {
	p := New(DefaultConfig(), &fakePatterns{eligible: []models.APIPattern{{ID: "p1"}}}, &fakeSelectors{}, nil)
	start := time.Now()
	_, err := p.Plan(context.Background(), "", "https://example.com/api/x", models.RequestConstraints{PreviewOnly: true})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
