package verifier

import (
	"testing"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestVerify_AllPass(t *testing.T) {
	v := New(nil)
	content := map[string]any{"name": "Ada Lovelace", "bio": "mathematician"}
	directive := models.VerificationDirective{Checks: []models.Check{
		{Type: "content", Assertion: models.Assertion{Kind: models.AssertFieldExists, Fields: []string{".name", ".bio"}}, Severity: models.SeverityError},
		{Type: "content", Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 5}, Severity: models.SeverityError},
	}}

	outcome := v.Verify(directive, content, "some extracted text of decent length")
	assert.True(t, outcome.Passed)
	assert.Equal(t, 1.0, outcome.Confidence)
	assert.Empty(t, outcome.Errors)
}

func TestVerify_MissingFieldFailsWhenNotRetryable(t *testing.T) {
	v := New(nil)
	content := map[string]any{"name": "Ada"}
	directive := models.VerificationDirective{Checks: []models.Check{
		{Assertion: models.Assertion{Kind: models.AssertFieldExists, Fields: []string{".bio"}}, Severity: models.SeverityError, Retryable: false},
	}}

	outcome := v.Verify(directive, content, "text")
	assert.False(t, outcome.Passed)
	assert.Contains(t, outcome.MissingFields, ".bio")
}

func TestVerify_WarningNeverFails(t *testing.T) {
	v := New(nil)
	directive := models.VerificationDirective{Checks: []models.Check{
		{Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 1000}, Severity: models.SeverityWarning},
	}}

	outcome := v.Verify(directive, map[string]any{}, "short")
	assert.True(t, outcome.Passed)
	assert.NotEmpty(t, outcome.Errors)
}

func TestVerify_RetryableErrorDoesNotFail(t *testing.T) {
	v := New(nil)
	directive := models.VerificationDirective{Checks: []models.Check{
		{Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 1000}, Severity: models.SeverityError, Retryable: true},
	}}

	outcome := v.Verify(directive, map[string]any{}, "short")
	assert.True(t, outcome.Passed)
}

func TestVerify_CriticalAlwaysFails(t *testing.T) {
	v := New(nil)
	directive := models.VerificationDirective{Checks: []models.Check{
		{Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 1000}, Severity: models.SeverityCritical, Retryable: true},
	}}

	outcome := v.Verify(directive, map[string]any{}, "short")
	assert.False(t, outcome.Passed)
}

func TestVerify_FieldMatches(t *testing.T) {
	v := New(nil)
	content := map[string]any{"status": "active"}
	directive := models.VerificationDirective{Checks: []models.Check{
		{Assertion: models.Assertion{Kind: models.AssertFieldMatches, Field: ".status", Regex: "^(active|pending)$"}, Severity: models.SeverityError},
	}}
	outcome := v.Verify(directive, content, "")
	assert.True(t, outcome.Passed)
}

func TestVerify_ExcludesText(t *testing.T) {
	v := New(nil)
	directive := models.VerificationDirective{Checks: []models.Check{
		{Assertion: models.Assertion{Kind: models.AssertExcludesText, ExcludedText: "captcha"}, Severity: models.SeverityCritical},
	}}
	outcome := v.Verify(directive, nil, "please solve this captcha to continue")
	assert.False(t, outcome.Passed)
}

func TestVerify_PresetResolution(t *testing.T) {
	v := New([]models.Preset{{
		ID: "general_research",
		Checks: []models.Check{
			{Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 10}, Severity: models.SeverityError},
		},
	}})
	outcome := v.Verify(models.VerificationDirective{PresetID: "general_research"}, nil, "short")
	assert.False(t, outcome.Passed)
}

func TestVerify_NoChecksPassesTrivially(t *testing.T) {
	v := New(nil)
	outcome := v.Verify(models.VerificationDirective{}, nil, "")
	assert.True(t, outcome.Passed)
	assert.Equal(t, 1.0, outcome.Confidence)
}
