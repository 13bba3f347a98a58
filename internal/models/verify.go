package models

// Severity governs how a failed Check affects the overall fetch outcome.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AssertionKind enumerates the Verifier's supported assertion vocabulary
// from spec.md §4.9.
type AssertionKind string

const (
	AssertFieldExists   AssertionKind = "fieldExists"
	AssertFieldMatches  AssertionKind = "fieldMatches"
	AssertMinLength     AssertionKind = "minLength"
	AssertExcludesText  AssertionKind = "excludesText"
)

// Assertion is the typed payload for one Check; exactly the fields relevant
// to Kind are populated.
type Assertion struct {
	Kind        AssertionKind `json:"kind"`
	Fields      []string      `json:"fields,omitempty"`       // fieldExists
	Field       string        `json:"field,omitempty"`        // fieldMatches
	Regex       string        `json:"regex,omitempty"`        // fieldMatches
	MinLength   int           `json:"min_length,omitempty"`    // minLength
	ExcludedText string       `json:"excluded_text,omitempty"` // excludesText
}

// Check is one verification directive entry.
type Check struct {
	Type      string    `json:"type"` // always "content" currently
	Assertion Assertion `json:"assertion"`
	Severity  Severity  `json:"severity"`
	Retryable bool      `json:"retryable"`
}

// VerificationDirective bundles the Checks a caller (or a named preset)
// wants evaluated against extracted content.
type VerificationDirective struct {
	PresetID string  `json:"preset_id,omitempty"`
	Checks   []Check `json:"checks,omitempty"`
}

// Preset is a named, shipped bundle of Checks (government_portal,
// visa_immigration, legal_document, tax_finance, general_research, …).
type Preset struct {
	ID     string  `json:"id"`
	Topic  string  `json:"topic"`
	Checks []Check `json:"checks"`
}
