package optimizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDetectAPIShortcuts_ProposesWhenCoverageAndParamsClearBar(t *testing.T) {
	wf := models.Workflow{
		ID: "wf-1",
		Steps: []models.WorkflowStep{
			{StepNumber: 1, Action: models.ActionClick, Duration: 200 * time.Millisecond,
				ExtractedData: map[string]any{"userId": "42", "orgId": "7"}},
			{StepNumber: 2, Action: models.ActionClick, Duration: 300 * time.Millisecond,
				ExtractedData: map[string]any{"sessionToken": "abc"}},
			{StepNumber: 3, Action: models.ActionExtract, Duration: 150 * time.Millisecond},
		},
	}

	body := mustJSON(t, map[string]any{"userId": "42", "orgId": "7", "sessionToken": "abc", "profile": map[string]any{"name": "x"}})
	logs := [][]models.NetworkRequest{
		nil,
		nil,
		{{Method: "GET", URL: "https://example.com/api/users/42/orgs/7", ContentType: "application/json", ResponseStatus: 200, ResponseBody: body}},
	}

	opts := DetectAPIShortcuts(wf, logs)
	require.Len(t, opts, 1)
	assert.Equal(t, models.OptimizationAPIShortcut, opts[0].Strategy)
	assert.Equal(t, 3, opts[0].ShortcutStepNumber)
	assert.Equal(t, []int{1, 2}, opts[0].BypassedSteps)
	assert.InDelta(t, 1.0, opts[0].Confidence, 0.001)
}

func TestDetectAPIShortcuts_SkipsWhenTooFewParameters(t *testing.T) {
	wf := models.Workflow{
		ID: "wf-1",
		Steps: []models.WorkflowStep{
			{StepNumber: 1, ExtractedData: map[string]any{"title": "hello"}},
			{StepNumber: 2},
		},
	}
	body := mustJSON(t, map[string]any{"title": "hello"})
	logs := [][]models.NetworkRequest{
		nil,
		{{Method: "GET", URL: "https://example.com/api/page", ContentType: "application/json", ResponseStatus: 200, ResponseBody: body}},
	}
	opts := DetectAPIShortcuts(wf, logs)
	assert.Empty(t, opts, "a request with no path/query parameters shouldn't produce a shortcut")
}

func TestDetectDataSufficiency_ProposesWhenLaterStepCoversEarlierFields(t *testing.T) {
	wf := models.Workflow{
		ID: "wf-1",
		Steps: []models.WorkflowStep{
			{StepNumber: 1, Duration: 100 * time.Millisecond, ExtractedData: map[string]any{"title": "a", "price": "10"}},
			{StepNumber: 2, Duration: 100 * time.Millisecond, ExtractedData: map[string]any{"title": "a", "price": "10", "reviews": 4}},
		},
	}
	opts := DetectDataSufficiency(wf)
	require.Len(t, opts, 1)
	assert.Equal(t, models.OptimizationDataSufficiency, opts[0].Strategy)
	assert.Equal(t, 2, opts[0].ShortcutStepNumber)
	assert.Equal(t, []int{1}, opts[0].BypassedSteps)
}

func TestStore_PromotionIsExclusivePerWorkflow(t *testing.T) {
	store := NewStore()
	optA := store.Propose(models.Optimization{WorkflowID: "wf-1", Strategy: models.OptimizationAPIShortcut, ShortcutStepNumber: 3})
	optB := store.Propose(models.Optimization{WorkflowID: "wf-1", Strategy: models.OptimizationDataSufficiency, ShortcutStepNumber: 2})

	for i := 0; i < 5; i++ {
		var err error
		optA, err = store.RecordOutcome("wf-1", optA.ID, true, 10*time.Millisecond, 100*time.Millisecond)
		require.NoError(t, err)
	}
	assert.True(t, optA.Promoted)

	promoted, ok := store.Promoted("wf-1")
	require.True(t, ok)
	assert.Equal(t, optA.ID, promoted.ID)

	for i := 0; i < 5; i++ {
		var err error
		optB, err = store.RecordOutcome("wf-1", optB.ID, true, 10*time.Millisecond, 100*time.Millisecond)
		require.NoError(t, err)
	}
	assert.True(t, optB.Promoted)

	promoted, ok = store.Promoted("wf-1")
	require.True(t, ok)
	assert.Equal(t, optB.ID, promoted.ID, "promoting optB should have demoted optA")

	list := store.List("wf-1")
	promotedCount := 0
	for _, o := range list {
		if o.Promoted {
			promotedCount++
		}
	}
	assert.Equal(t, 1, promotedCount)
}

func TestOptimizationMetrics_SuccessRateAndPromotionBar(t *testing.T) {
	var m models.OptimizationMetrics
	assert.Equal(t, 0.0, m.SuccessRate())

	for i := 0; i < 4; i++ {
		m.RecordOutcome(true, 10*time.Millisecond, 100*time.Millisecond)
	}
	assert.InDelta(t, 1.0, m.SuccessRate(), 0.001)
	assert.False(t, models.Optimization{Metrics: m}.EligibleForPromotion(), "timesUsed below 5 never promotes regardless of success rate")

	m.RecordOutcome(false, 10*time.Millisecond, 100*time.Millisecond)
	assert.InDelta(t, 0.8, m.SuccessRate(), 0.001)
	assert.False(t, models.Optimization{Metrics: m}.EligibleForPromotion(), "0.8 success rate is below the 0.9 bar")

	for i := 0; i < 4; i++ {
		m.RecordOutcome(true, 10*time.Millisecond, 100*time.Millisecond)
	}
	assert.InDelta(t, float64(8)/9.0, m.SuccessRate(), 0.001, "4 successes then 1 failure then 4 more successes is 8/9")
	assert.False(t, models.Optimization{Metrics: m}.EligibleForPromotion(), "8/9 is still below the 0.9 bar")

	m.RecordOutcome(true, 10*time.Millisecond, 100*time.Millisecond)
	assert.InDelta(t, float64(9)/10.0, m.SuccessRate(), 0.001)
	assert.True(t, models.Optimization{Metrics: m}.EligibleForPromotion(), "9/10 clears both the timesUsed and successRate bars")
}
