package models

import "time"

// Tier names a rung of the fetch cascade. "pattern-invoke" is synthetic,
// prepended by the Planner when a high-confidence API Pattern exists.
type Tier string

const (
	TierPatternInvoke Tier = "pattern-invoke"
	TierIntelligence  Tier = "intelligence"
	TierLightweight   Tier = "lightweight"
	TierPlaywright    Tier = "playwright"
)

// ConfidenceFactors breaks down how a Plan's overall confidence was
// composed, per spec.md §4.1.
type ConfidenceFactors struct {
	DomainFamiliarity float64 `json:"domain_familiarity"`
	HasLearnedPatterns bool   `json:"has_learned_patterns"`
	APIDiscovered     bool    `json:"api_discovered"`
	BotDetectionLikely bool   `json:"bot_detection_likely"`
}

// PlanConfidence is the Plan's aggregate confidence plus its contributing
// factors.
type PlanConfidence struct {
	Overall float64           `json:"overall"`
	Factors ConfidenceFactors `json:"factors"`
}

// EstimatedTime is the Plan's latency forecast.
type EstimatedTime struct {
	Min      time.Duration `json:"min"`
	Expected time.Duration `json:"expected"`
	Max      time.Duration `json:"max"`
}

// Plan is the Planner's output: the tier sequence to attempt, the ranked
// candidates at each shortcut layer, and the reasoning behind it.
type Plan struct {
	TierSequence      []Tier          `json:"tier_sequence"`
	CandidatePatterns []APIPattern    `json:"candidate_patterns,omitempty"`
	CandidateSelectors []SelectorChain `json:"candidate_selectors,omitempty"`
	EstimatedTime     EstimatedTime   `json:"estimated_time"`
	Confidence        PlanConfidence  `json:"confidence"`
	Reasoning         []string        `json:"reasoning"`
}

// Empty reports whether the Plan has no viable tier to attempt, which the
// Executor must surface as NoViableTier.
func (p *Plan) Empty() bool { return len(p.TierSequence) == 0 }

// RequestConstraints are the caller-supplied limits the Planner trims the
// tier sequence against.
type RequestConstraints struct {
	MaxLatencyMs      int64  `json:"max_latency_ms,omitempty"`
	MaxCostTier       Tier   `json:"max_cost_tier,omitempty"`
	ContentTypePref   string `json:"content_type_pref,omitempty"`
	PreviewOnly       bool   `json:"preview_only,omitempty"`
}

// TierAttempt is one entry in a Decision Trace's ordered tier attempts.
type TierAttempt struct {
	Tier               Tier          `json:"tier"`
	Duration           time.Duration `json:"duration"`
	Success            bool          `json:"success"`
	ExtractionStrategy string        `json:"extraction_strategy,omitempty"`
	ValidationDetails  string        `json:"validation_details,omitempty"`
	FailureReason      string        `json:"failure_reason,omitempty"`
}

// SelectorAttempt records one selector tried during extraction.
type SelectorAttempt struct {
	Selector      string  `json:"selector"`
	Source        string  `json:"source"` // "learned" or "heuristic"
	Matched       bool    `json:"matched"`
	ContentLength int     `json:"content_length"`
	Confidence    float64 `json:"confidence"`
	Selected      bool    `json:"selected"`
	SkipReason    string  `json:"skip_reason,omitempty"`
}

// TitleAttempt records one candidate title extraction.
type TitleAttempt struct {
	Source   string `json:"source"` // e.g. "og:title", "h1", "title-tag"
	Value    string `json:"value"`
	Found    bool   `json:"found"`
	Selected bool   `json:"selected"`
}

// TraceSummary is the Decision Trace's rollup.
type TraceSummary struct {
	FinalTier          Tier `json:"final_tier,omitempty"`
	TiersAttempted     int  `json:"tiers_attempted"`
	SelectorsAttempted int  `json:"selectors_attempted"`
}

// DecisionTrace is owned by one Executor invocation and returned verbatim
// to callers, even on failure.
type DecisionTrace struct {
	Tiers      []TierAttempt     `json:"tiers"`
	Selectors  []SelectorAttempt `json:"selectors,omitempty"`
	Titles     []TitleAttempt    `json:"titles,omitempty"`
	Summary    TraceSummary      `json:"summary"`
}

// Tables is a lightly structured table extraction: header row plus body
// rows, both flattened to strings.
type Table struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

// Content holds the multiple renditions a Renderer/Executor may produce.
type Content struct {
	Markdown string `json:"markdown"`
	Text     string `json:"text"`
	HTML     string `json:"html,omitempty"`
}

// NetworkRequest is one entry in a Renderer's captured network log, fed to
// the API Analyzer.
type NetworkRequest struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	ResponseStatus  int               `json:"response_status"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    []byte            `json:"response_body,omitempty"`
	ContentType     string            `json:"content_type,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// RenderOutput is what every Renderer tier implementation returns.
type RenderOutput struct {
	FinalURL   string           `json:"final_url"`
	Title      string           `json:"title"`
	HTML       string           `json:"html"`
	Markdown   string           `json:"markdown"`
	Text       string           `json:"text"`
	Tables     []Table          `json:"tables,omitempty"`
	NetworkLog []NetworkRequest `json:"network_log,omitempty"`
}

// VerificationOutcome is the Verifier's pass/fail report, embedded in
// Result.
type VerificationOutcome struct {
	Passed         bool     `json:"passed"`
	Errors         []string `json:"errors,omitempty"`
	Confidence     float64  `json:"confidence"`
	CheckedFields  []string `json:"checked_fields,omitempty"`
	MissingFields  []string `json:"missing_fields,omitempty"`
}

// ResultMetadata is Result's timing/tier rollup.
type ResultMetadata struct {
	LoadTime       time.Duration `json:"load_time"`
	Tier           Tier          `json:"tier"`
	TiersAttempted []Tier        `json:"tiers_attempted"`
}

// Result is the Executor's output, returned from /v1/browse and /v1/fetch.
type Result struct {
	FinalURL       string               `json:"final_url"`
	Title          string               `json:"title"`
	Content        Content              `json:"content"`
	Tables         []Table              `json:"tables,omitempty"`
	DiscoveredAPIs []APIPattern         `json:"discovered_apis,omitempty"`
	Verification   VerificationOutcome  `json:"verification"`
	Metadata       ResultMetadata       `json:"metadata"`
	DecisionTrace  DecisionTrace        `json:"decision_trace"`
}

// Session carries caller-supplied browser state (cookies, localStorage)
// through to the Renderer capability.
type Session struct {
	Cookies      []Cookie          `json:"cookies,omitempty"`
	LocalStorage map[string]string `json:"local_storage,omitempty"`
}

type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}
