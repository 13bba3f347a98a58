// Package models holds the persistent record types shared across the fetch
// core: API Patterns, Domain Intelligence, Discovery Results, Workflows,
// Skills, Change-Prediction Patterns, and Decision Traces. Adapted from the
// teacher's internal/models package, which held the equivalent per-host
// aggregate (SiteContext) and persistent records (URLPattern, ResourceMapping,
// HTMLForm) for a security-recon use case; the same "aggregate record with
// bounded sub-collections, guarded by a limiter" shape carries over here.
package models

import "time"

// TemplateType classifies how an API Pattern's endpoint is invoked.
type TemplateType string

const (
	TemplateRestResource TemplateType = "rest-resource"
	TemplateQueryAPI     TemplateType = "query-api"
	TemplateGraphQL      TemplateType = "graphql"
)

// ExtractorSource names where an Extractor pulls its captured value from.
type ExtractorSource string

const (
	SourcePath   ExtractorSource = "path"
	SourceQuery  ExtractorSource = "query"
	SourceHeader ExtractorSource = "header"
)

// ResponseFormat is the wire format an API Pattern expects back.
type ResponseFormat string

const (
	FormatJSON ResponseFormat = "json"
	FormatXML  ResponseFormat = "xml"
	FormatText ResponseFormat = "text"
)

// Extractor captures one named value out of the inbound request (a path
// segment, query parameter, or header) that's later substituted into an API
// Pattern's endpoint template.
type Extractor struct {
	Name    string          `json:"name"`
	Source  ExtractorSource `json:"source"`
	Pattern string          `json:"pattern"` // regex with at least one capture group
	Group   int             `json:"group"`
}

// ContentMapping names the JSON/XML field paths used to lift structured
// content (title, body, list items, …) out of a pattern-invoked response.
// Field paths are gojq query strings, e.g. ".data.user.name".
type ContentMapping struct {
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body,omitempty"`
	ListItems string            `json:"list_items,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ValidationRules are the pass/fail criteria a pattern-invoked response must
// satisfy before the pattern is considered to have produced usable content.
type ValidationRules struct {
	RequiredFields     []string `json:"required_fields,omitempty"`
	MinContentLength   int      `json:"min_content_length,omitempty"`
	AllowedContentType []string `json:"allowed_content_types,omitempty"`
}

// PatternMetrics tracks an API Pattern's observed reliability.
type PatternMetrics struct {
	SuccessCount  int       `json:"success_count"`
	FailureCount  int       `json:"failure_count"`
	Confidence    float64   `json:"confidence"` // ∈ [0,1]
	LastSuccess   time.Time `json:"last_success"`
	SourceDomains []string  `json:"source_domains,omitempty"`
}

// APIPattern is the persistent, reusable record of how to invoke an
// endpoint directly instead of rendering a page: one field per the data
// model entry in spec.md §3.
type APIPattern struct {
	ID              string          `json:"id"`
	TemplateType    TemplateType    `json:"template_type"`
	URLPatterns     []string        `json:"url_patterns"` // regexes matched against canonical request URLs
	EndpointTemplate string         `json:"endpoint_template"` // with {param} placeholders
	Extractors      []Extractor     `json:"extractors"`
	Method          string          `json:"method"`
	Headers         map[string]string `json:"headers,omitempty"`
	ResponseFormat  ResponseFormat  `json:"response_format"`
	ContentMapping  ContentMapping  `json:"content_mapping"`
	Validation      ValidationRules `json:"validation"`
	Metrics         PatternMetrics  `json:"metrics"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Eligible reports whether this pattern may be used for a pattern-invoke
// bypass, per the §4.3 threshold: confidence ≥ minConfidence, at least
// minSuccesses recorded, and a success within maxAge.
func (p *APIPattern) Eligible(minConfidence float64, minSuccesses int, maxAge time.Duration) bool {
	if p.Metrics.Confidence < minConfidence {
		return false
	}
	if p.Metrics.SuccessCount < minSuccesses {
		return false
	}
	if p.Metrics.LastSuccess.IsZero() {
		return false
	}
	return time.Since(p.Metrics.LastSuccess) <= maxAge
}

// ApplySuccess folds a successful invocation into the pattern's confidence
// using the smoothing update from spec.md §4.3: confidence += (1-confidence)*alpha.
func (p *APIPattern) ApplySuccess(alpha float64, at time.Time) {
	p.Metrics.Confidence += (1 - p.Metrics.Confidence) * alpha
	p.Metrics.SuccessCount++
	p.Metrics.LastSuccess = at
	p.UpdatedAt = at
}

// ApplyFailure folds a failed invocation into the pattern's confidence:
// confidence *= (1-beta).
func (p *APIPattern) ApplyFailure(beta float64, at time.Time) {
	p.Metrics.Confidence *= (1 - beta)
	p.Metrics.FailureCount++
	p.UpdatedAt = at
}

// SelectorChain is an ordered fallback list of CSS/XPath selectors tried in
// turn during extraction, with per-selector hit counters so a chain
// self-reorders toward whichever selector keeps working.
type SelectorChain struct {
	Domain    string            `json:"domain"`
	Purpose   string            `json:"purpose"` // e.g. "title", "body", "price"
	Selectors []ChainedSelector `json:"selectors"`
}

type ChainedSelector struct {
	Selector     string `json:"selector"`
	Kind         string `json:"kind"` // "css" or "xpath"
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
}

// DomainIntelligence is the read-side summary the Planner consults and
// GET /v1/domains/{domain}/intelligence returns.
type DomainIntelligence struct {
	Domain                string    `json:"domain"`
	KnownPatternCount     int       `json:"known_pattern_count"`
	SelectorChainCount    int       `json:"selector_chain_count"`
	ValidatorCount        int       `json:"validator_count"`
	RollingSuccessRate    float64   `json:"rolling_success_rate"`
	RecommendedWaitStrategy string  `json:"recommended_wait_strategy"`
	ShouldUseSession      bool      `json:"should_use_session"`
	TotalAttempts         int64     `json:"total_attempts"`
	TotalSuccesses        int64     `json:"total_successes"`
	BotDetectionFailures  int64     `json:"bot_detection_failures"`
	LastObserved          time.Time `json:"last_observed"`
}
