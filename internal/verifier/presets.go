package verifier

import "github.com/fetchweave/fetchsvc/internal/models"

// DefaultPresets returns the shipped verification preset catalog from
// spec.md §6: a caller may pass one of these ids instead of an inline
// Checks list. Each bundles the minimum checks that distinguish "the page
// actually has this topic's content" from a login wall, a captcha page, or
// an empty shell.
func DefaultPresets() []models.Preset {
	return []models.Preset{
		{
			ID:    "government_portal",
			Topic: "government_portal",
			Checks: []models.Check{
				{Type: "content", Severity: models.SeverityError, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 200}},
				{Type: "content", Severity: models.SeverityCritical, Retryable: false,
					Assertion: models.Assertion{Kind: models.AssertExcludesText, ExcludedText: "access denied"}},
			},
		},
		{
			ID:    "visa_immigration",
			Topic: "visa_immigration",
			Checks: []models.Check{
				{Type: "content", Severity: models.SeverityError, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertFieldExists, Fields: []string{"title"}}},
				{Type: "content", Severity: models.SeverityError, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 150}},
			},
		},
		{
			ID:    "legal_document",
			Topic: "legal_document",
			Checks: []models.Check{
				{Type: "content", Severity: models.SeverityError, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 500}},
				{Type: "content", Severity: models.SeverityCritical, Retryable: false,
					Assertion: models.Assertion{Kind: models.AssertExcludesText, ExcludedText: "please verify you are human"}},
			},
		},
		{
			ID:    "tax_finance",
			Topic: "tax_finance",
			Checks: []models.Check{
				{Type: "content", Severity: models.SeverityError, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertFieldExists, Fields: []string{"title"}}},
				{Type: "content", Severity: models.SeverityWarning, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 100}},
			},
		},
		{
			ID:    "general_research",
			Topic: "general_research",
			Checks: []models.Check{
				{Type: "content", Severity: models.SeverityWarning, Retryable: true,
					Assertion: models.Assertion{Kind: models.AssertMinLength, MinLength: 50}},
			},
		},
	}
}
