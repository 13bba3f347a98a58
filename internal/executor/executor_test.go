package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatternWriter struct {
	upserted  []models.APIPattern
	successes []string
	failures  []string
	bots      []string
}

func (f *fakePatternWriter) Upsert(ctx context.Context, p models.APIPattern) (string, error) {
	f.upserted = append(f.upserted, p)
	return "generated-id", nil
}
func (f *fakePatternWriter) RecordSuccess(ctx context.Context, patternID, domain string, latency time.Duration) error {
	f.successes = append(f.successes, patternID)
	return nil
}
func (f *fakePatternWriter) RecordFailure(ctx context.Context, patternID, domain, reason string) error {
	f.failures = append(f.failures, patternID)
	return nil
}
func (f *fakePatternWriter) RecordBotDetection(domain string) { f.bots = append(f.bots, domain) }

type fakeSelectorWriter struct{ outcomes int }

func (f *fakeSelectorWriter) RecordOutcome(domain, purpose, selector, kind string, success bool) {
	f.outcomes++
}

type fakePredictor struct{ observed int }

func (f *fakePredictor) ObserveContent(domain, urlPattern, hash string, at time.Time) models.ChangePredictionPattern {
	f.observed++
	return models.ChangePredictionPattern{}
}

func newFakeRegistry(renderers ...renderer.Renderer) *renderer.Registry {
	return renderer.NewRegistry(renderers...)
}

func newTestExecutor(t *testing.T, renderers *renderer.Registry, patterns *fakePatternWriter, selectors *fakeSelectorWriter, verifierSvc VerifierService, pred *fakePredictor) *Executor {
	t.Helper()
	return New(DefaultConfig(), renderers, patterns, selectors, verifierSvc, pred, http.DefaultClient)
}

func passthroughVerifier() VerifierService {
	return passthroughVerifierImpl{}
}

type passthroughVerifierImpl struct{}

func (passthroughVerifierImpl) Verify(directive models.VerificationDirective, content any, text string) models.VerificationOutcome {
	return models.VerificationOutcome{Passed: true, Confidence: 1}
}
func (passthroughVerifierImpl) CriticalNonRetryableFailure(directive models.VerificationDirective, content any, text string) bool {
	return false
}

type minLenVerifier struct{ min int }

func (v minLenVerifier) Verify(directive models.VerificationDirective, content any, text string) models.VerificationOutcome {
	if len(text) < v.min {
		return models.VerificationOutcome{Passed: false, Errors: []string{"content shorter than required minimum length"}}
	}
	return models.VerificationOutcome{Passed: true, Confidence: 1}
}
func (v minLenVerifier) CriticalNonRetryableFailure(directive models.VerificationDirective, content any, text string) bool {
	return false
}

type alwaysCriticalFailVerifier struct{}

func (alwaysCriticalFailVerifier) Verify(directive models.VerificationDirective, content any, text string) models.VerificationOutcome {
	return models.VerificationOutcome{Passed: false, Errors: []string{"blocked: access denied"}}
}
func (alwaysCriticalFailVerifier) CriticalNonRetryableFailure(directive models.VerificationDirective, content any, text string) bool {
	return true
}

func TestFetch_IntelligenceTierSucceedsOnFirstAttempt(t *testing.T) {
	fake := &renderer.FakeRenderer{
		TierName: models.TierIntelligence,
		Output:   models.RenderOutput{FinalURL: "https://example.com/page", Title: "Example", Text: "hello world"},
	}
	patterns := &fakePatternWriter{}
	selectors := &fakeSelectorWriter{}
	pred := &fakePredictor{}
	ex := newTestExecutor(t, newFakeRegistry(fake), patterns, selectors, passthroughVerifier(), pred)

	plan := models.Plan{TierSequence: []models.Tier{models.TierIntelligence, models.TierLightweight, models.TierPlaywright}}
	res, err := ex.Fetch(context.Background(), "tenant1", plan, "https://example.com/page", models.Session{}, models.VerificationDirective{})

	require.NoError(t, err)
	assert.Equal(t, "Example", res.Title)
	assert.Equal(t, models.TierIntelligence, res.Metadata.Tier)
	assert.Len(t, res.DecisionTrace.Tiers, 1)
	assert.True(t, res.DecisionTrace.Tiers[0].Success)
	assert.Equal(t, 1, pred.observed)
}

func TestFetch_EscalatesThroughTiersOnValidationFailure(t *testing.T) {
	intel := &renderer.FakeRenderer{TierName: models.TierIntelligence, Output: models.RenderOutput{Text: "x"}}
	light := &renderer.FakeRenderer{TierName: models.TierLightweight, Output: models.RenderOutput{Text: "y"}}
	play := &renderer.FakeRenderer{TierName: models.TierPlaywright, Output: models.RenderOutput{Title: "Final", Text: "a long enough body of text to pass"}}

	calls := 0
	v := fetchCountingVerifier(&calls, 10)

	patterns := &fakePatternWriter{}
	pred := &fakePredictor{}
	ex := newTestExecutor(t, newFakeRegistry(intel, light, play), patterns, &fakeSelectorWriter{}, v, pred)

	plan := models.Plan{TierSequence: []models.Tier{models.TierIntelligence, models.TierLightweight, models.TierPlaywright}}
	res, err := ex.Fetch(context.Background(), "tenant1", plan, "https://example.com/page", models.Session{}, models.VerificationDirective{})

	require.NoError(t, err)
	assert.Equal(t, "Final", res.Title)
	assert.Equal(t, models.TierPlaywright, res.Metadata.Tier)
	require.Len(t, res.DecisionTrace.Tiers, 3)
	assert.False(t, res.DecisionTrace.Tiers[0].Success)
	assert.False(t, res.DecisionTrace.Tiers[1].Success)
	assert.True(t, res.DecisionTrace.Tiers[2].Success)
}

// fetchCountingVerifier fails every attempt whose text is shorter than min,
// letting the final (playwright) tier's longer body pass.
func fetchCountingVerifier(calls *int, min int) VerifierService {
	return minLenVerifier{min: min}
}

func TestFetch_NoViableTierWhenPlanEmpty(t *testing.T) {
	ex := newTestExecutor(t, newFakeRegistry(), &fakePatternWriter{}, &fakeSelectorWriter{}, passthroughVerifier(), &fakePredictor{})
	_, err := ex.Fetch(context.Background(), "tenant1", models.Plan{}, "https://example.com/page", models.Session{}, models.VerificationDirective{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no viable tier")
}

func TestFetch_InvalidURLReturnsInvalidUrlError(t *testing.T) {
	ex := newTestExecutor(t, newFakeRegistry(), &fakePatternWriter{}, &fakeSelectorWriter{}, passthroughVerifier(), &fakePredictor{})
	plan := models.Plan{TierSequence: []models.Tier{models.TierIntelligence}}
	_, err := ex.Fetch(context.Background(), "tenant1", plan, "not a url", models.Session{}, models.VerificationDirective{})
	require.Error(t, err)
}

func TestFetch_CriticalNonRetryableFailureStopsImmediately(t *testing.T) {
	intel := &renderer.FakeRenderer{TierName: models.TierIntelligence, Output: models.RenderOutput{Text: "blocked"}}
	light := &renderer.FakeRenderer{TierName: models.TierLightweight, Output: models.RenderOutput{Text: "should never be reached"}}

	ex := newTestExecutor(t, newFakeRegistry(intel, light), &fakePatternWriter{}, &fakeSelectorWriter{}, alwaysCriticalFailVerifier{}, &fakePredictor{})
	plan := models.Plan{TierSequence: []models.Tier{models.TierIntelligence, models.TierLightweight}}
	res, err := ex.Fetch(context.Background(), "tenant1", plan, "https://example.com/page", models.Session{}, models.VerificationDirective{})

	require.Error(t, err)
	require.Len(t, res.DecisionTrace.Tiers, 1)
	assert.Equal(t, "critical non-retryable check failed", res.DecisionTrace.Tiers[0].FailureReason)
}

func TestFetch_BotDetectionRecordsAndFailsFast(t *testing.T) {
	intel := &renderer.FakeRenderer{
		TierName: models.TierIntelligence,
		Err:      assertCaptchaErr{},
	}
	light := &renderer.FakeRenderer{TierName: models.TierLightweight, Output: models.RenderOutput{Text: "should never be reached"}}

	patterns := &fakePatternWriter{}
	ex := newTestExecutor(t, newFakeRegistry(intel, light), patterns, &fakeSelectorWriter{}, passthroughVerifier(), &fakePredictor{})
	plan := models.Plan{TierSequence: []models.Tier{models.TierIntelligence, models.TierLightweight}}
	_, err := ex.Fetch(context.Background(), "tenant1", plan, "https://example.com/page", models.Session{}, models.VerificationDirective{})

	require.Error(t, err)
	assert.Len(t, patterns.bots, 1)
	assert.Equal(t, "example.com", patterns.bots[0])
}

type assertCaptchaErr struct{}

func (assertCaptchaErr) Error() string { return "captcha challenge detected" }

func TestFetch_PatternInvokeSucceedsAndRecordsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"title": "From API", "body": "full article body text"}}`))
	}))
	defer srv.Close()

	pat := models.APIPattern{
		ID:             "p1",
		EndpointTemplate: srv.URL + "/articles/{id}",
		Method:         http.MethodGet,
		ResponseFormat: models.FormatJSON,
		Extractors: []models.Extractor{
			{Name: "id", Source: models.SourcePath, Pattern: `/articles/(\d+)`, Group: 1},
		},
		ContentMapping: models.ContentMapping{Title: ".data.title", Body: ".data.body"},
		Validation:     models.ValidationRules{RequiredFields: []string{".data.title"}, MinContentLength: 1},
	}

	patterns := &fakePatternWriter{}
	pred := &fakePredictor{}
	ex := newTestExecutor(t, newFakeRegistry(), patterns, &fakeSelectorWriter{}, passthroughVerifier(), pred)

	plan := models.Plan{
		TierSequence:      []models.Tier{models.TierPatternInvoke},
		CandidatePatterns: []models.APIPattern{pat},
	}
	res, err := ex.Fetch(context.Background(), "tenant1", plan, "https://example.com/articles/42", models.Session{}, models.VerificationDirective{})

	require.NoError(t, err)
	assert.Equal(t, "From API", res.Title)
	assert.Equal(t, "full article body text", res.Content.Text)
	require.Len(t, patterns.successes, 1)
	assert.Equal(t, "p1", patterns.successes[0])
}

func TestFetch_PatternInvokeFallsThroughOnValidationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {}}`))
	}))
	defer srv.Close()

	pat := models.APIPattern{
		ID:               "p1",
		EndpointTemplate: srv.URL + "/articles",
		Method:           http.MethodGet,
		ResponseFormat:   models.FormatJSON,
		ContentMapping:   models.ContentMapping{Title: ".data.title"},
		Validation:       models.ValidationRules{RequiredFields: []string{".data.title"}},
	}
	fallback := &renderer.FakeRenderer{
		TierName: models.TierLightweight,
		Output:   models.RenderOutput{Title: "Rendered Fallback", Text: "rendered body"},
	}

	patterns := &fakePatternWriter{}
	ex := newTestExecutor(t, newFakeRegistry(fallback), patterns, &fakeSelectorWriter{}, passthroughVerifier(), &fakePredictor{})

	plan := models.Plan{
		TierSequence:      []models.Tier{models.TierPatternInvoke, models.TierLightweight},
		CandidatePatterns: []models.APIPattern{pat},
	}
	res, err := ex.Fetch(context.Background(), "tenant1", plan, "https://example.com/articles", models.Session{}, models.VerificationDirective{})

	require.NoError(t, err)
	assert.Equal(t, "Rendered Fallback", res.Title)
	require.Len(t, res.DecisionTrace.Tiers, 2)
	assert.False(t, res.DecisionTrace.Tiers[0].Success)
	assert.True(t, res.DecisionTrace.Tiers[1].Success)
}
