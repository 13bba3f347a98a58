// Package planner implements the Planner from spec.md §4.1: given a URL and
// caller constraints, decide the tier sequence to attempt, the candidate
// API Patterns/selector chains to try first, and an estimated cost/
// confidence — all without performing any I/O, so preview-only calls
// complete in well under the 50ms budget.
//
// Grounded on the teacher's internal/driven/analyzer.go orchestration shape
// (decide-then-delegate, never doing the expensive work itself) generalized
// from "decide whether to run a full security analysis" into "decide which
// tiers to attempt and in what order".
package planner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fetchweave/fetchsvc/internal/domainutil"
	"github.com/fetchweave/fetchsvc/internal/models"
)

// PatternSource is the subset of patternstore.Store the Planner reads.
type PatternSource interface {
	EligiblePatterns(ctx context.Context, canonicalURL string) ([]models.APIPattern, error)
	DomainIntelligence(ctx context.Context, domain string) (models.DomainIntelligence, error)
}

// SelectorSource is the subset of patternstore.SelectorStore the Planner reads.
type SelectorSource interface {
	CandidateSelectors(domain string) []models.SelectorChain
}

// CooldownChecker lets the Planner omit pattern-invoke for a domain whose
// discovery has been failing repeatedly. Satisfied by *discovery.Cache;
// nil is a valid Planner dependency (cooldown check is simply skipped).
type CooldownChecker interface {
	DomainInCooldown(tenant, domain string) bool
}

// tierLatency is the expected wall-clock cost of one tier, used both for
// the max-latency constraint and the Plan's estimatedTime forecast. Mirrors
// the per-tier wall-clock defaults from spec.md §5 (intelligence 5s,
// lightweight 10s, playwright 30s) but as *expected*, not worst-case, costs.
var tierLatency = map[models.Tier]time.Duration{
	models.TierPatternInvoke: 150 * time.Millisecond,
	models.TierIntelligence:  2 * time.Second,
	models.TierLightweight:   800 * time.Millisecond,
	models.TierPlaywright:    6 * time.Second,
}

var tierCostOrder = []models.Tier{
	models.TierIntelligence, models.TierLightweight, models.TierPlaywright,
}

// Config holds the Planner's tunables.
type Config struct {
	// BotDetectionThreshold is the minimum per-domain anti-bot failure
	// count past which botDetectionLikely is set.
	BotDetectionThreshold int64
}

func DefaultConfig() Config {
	return Config{BotDetectionThreshold: 1}
}

// Planner builds Plans; it performs no I/O itself.
type Planner struct {
	cfg       Config
	patterns  PatternSource
	selectors SelectorSource
	cooldown  CooldownChecker
}

func New(cfg Config, patterns PatternSource, selectors SelectorSource, cooldown CooldownChecker) *Planner {
	return &Planner{cfg: cfg, patterns: patterns, selectors: selectors, cooldown: cooldown}
}

// Plan builds a Plan for rawURL under the given constraints. tenant scopes
// the cooldown check; pass "" when the deployment has no multi-tenant
// discovery isolation.
func (p *Planner) Plan(ctx context.Context, tenant, rawURL string, constraints models.RequestConstraints) (models.Plan, error) {
	canonical, err := domainutil.Canonicalize(rawURL)
	if err != nil {
		return models.Plan{}, err
	}
	domain, err := domainutil.Domain(canonical)
	if err != nil {
		return models.Plan{}, err
	}

	var intel models.DomainIntelligence
	var eligible []models.APIPattern
	if p.patterns != nil {
		intel, _ = p.patterns.DomainIntelligence(ctx, domain)
		eligible, _ = p.patterns.EligiblePatterns(ctx, canonical)
	}

	var selectorChains []models.SelectorChain
	if p.selectors != nil {
		selectorChains = p.selectors.CandidateSelectors(domain)
	}

	var reasoning []string

	sequence := append([]models.Tier(nil), tierCostOrder...)
	sequence, reasoning = trimByLatency(sequence, constraints.MaxLatencyMs, reasoning)
	sequence, reasoning = trimByCostTier(sequence, constraints.MaxCostTier, reasoning)

	cooldownActive := p.cooldown != nil && p.cooldown.DomainInCooldown(tenant, domain)
	if len(eligible) > 0 && !cooldownActive {
		sequence = append([]models.Tier{models.TierPatternInvoke}, sequence...)
		reasoning = append(reasoning, fmt.Sprintf("%d eligible pattern(s) found, prepending pattern-invoke", len(eligible)))
	} else if len(eligible) > 0 && cooldownActive {
		reasoning = append(reasoning, "domain discovery is in cooldown, omitting pattern-invoke despite eligible patterns")
	}

	domainFamiliarity := math.Tanh(float64(intel.TotalSuccesses) / 20)
	apiDiscovered := len(eligible) > 0
	botDetectionLikely := intel.BotDetectionFailures >= p.cfg.BotDetectionThreshold

	overall := confidenceScore(domainFamiliarity, apiDiscovered, botDetectionLikely, len(sequence) > 0)

	plan := models.Plan{
		TierSequence:       sequence,
		CandidatePatterns:  eligible,
		CandidateSelectors: selectorChains,
		EstimatedTime:      estimateTime(sequence),
		Confidence: models.PlanConfidence{
			Overall: overall,
			Factors: models.ConfidenceFactors{
				DomainFamiliarity:  domainFamiliarity,
				HasLearnedPatterns: len(eligible) > 0 || len(selectorChains) > 0,
				APIDiscovered:      apiDiscovered,
				BotDetectionLikely: botDetectionLikely,
			},
		},
		Reasoning: reasoning,
	}

	return plan, nil
}

func trimByLatency(seq []models.Tier, maxLatencyMs int64, reasoning []string) ([]models.Tier, []string) {
	if maxLatencyMs <= 0 {
		return seq, reasoning
	}
	budget := time.Duration(maxLatencyMs) * time.Millisecond
	out := seq[:0]
	for _, t := range seq {
		if tierLatency[t] <= budget {
			out = append(out, t)
		} else {
			reasoning = append(reasoning, fmt.Sprintf("dropping tier %s: expected latency exceeds max_latency_ms", t))
		}
	}
	return out, reasoning
}

func trimByCostTier(seq []models.Tier, maxCostTier models.Tier, reasoning []string) ([]models.Tier, []string) {
	if maxCostTier == "" {
		return seq, reasoning
	}
	idx := -1
	for i, t := range tierCostOrder {
		if t == maxCostTier {
			idx = i
			break
		}
	}
	if idx < 0 {
		return seq, reasoning
	}
	allowed := make(map[models.Tier]bool, idx+1)
	for _, t := range tierCostOrder[:idx+1] {
		allowed[t] = true
	}
	out := seq[:0]
	for _, t := range seq {
		if allowed[t] {
			out = append(out, t)
		} else {
			reasoning = append(reasoning, fmt.Sprintf("truncating tier %s: exceeds max_cost_tier %s", t, maxCostTier))
		}
	}
	return out, reasoning
}

// confidenceScore blends the three named factors into an overall figure.
// spec.md §4.1 defines the factors but not their combination; this weighting
// (domain familiarity dominant, bot detection a flat penalty) is this
// implementation's resolution of that Open Question, recorded in DESIGN.md.
func confidenceScore(domainFamiliarity float64, apiDiscovered, botDetectionLikely, hasViableTier bool) float64 {
	if !hasViableTier {
		return 0
	}
	score := 0.6*domainFamiliarity + 0.2
	if apiDiscovered {
		score += 0.2
	}
	if botDetectionLikely {
		score -= 0.3
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func estimateTime(seq []models.Tier) models.EstimatedTime {
	if len(seq) == 0 {
		return models.EstimatedTime{}
	}
	min := tierLatency[seq[0]]
	var max time.Duration
	for _, t := range seq {
		max += tierLatency[t]
	}
	return models.EstimatedTime{Min: min, Expected: tierLatency[seq[0]], Max: max}
}
