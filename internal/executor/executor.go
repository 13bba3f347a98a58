// Package executor implements the Executor from spec.md §4.2: the fetch
// state machine that runs a Plan tier-by-tier, validates each attempt,
// escalates on recoverable failure, and returns a Result with its Decision
// Trace attached verbatim whether the fetch succeeds or fails.
//
// Grounded on the teacher's internal/driven/analyzer.go for the
// "orchestrate, delegate the expensive work, fold the outcome back into
// shared state" shape (NewGenkitSecurityAnalyzer's decide → run → record
// cycle is the direct ancestor of TryTier → Validate → record-outcome
// here), generalized from a single LLM analysis pass into a multi-tier
// escalation cascade.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/apianalyzer"
	"github.com/fetchweave/fetchsvc/internal/apierrors"
	"github.com/fetchweave/fetchsvc/internal/contentmap"
	"github.com/fetchweave/fetchsvc/internal/domainutil"
	"github.com/fetchweave/fetchsvc/internal/events"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/renderer"
)

// EventPublisher is the subset of *events.Hub the Executor pushes decision
// traces through.
type EventPublisher interface {
	Publish(kind events.Kind, tenantID string, data any, at time.Time)
}

// PatternWriter is the subset of *patternstore.Store the Executor writes
// outcomes through, per spec.md §3's ownership rule ("Executor writes
// outcomes through the store's recordSuccess/recordFailure interface").
type PatternWriter interface {
	Upsert(ctx context.Context, p models.APIPattern) (string, error)
	RecordSuccess(ctx context.Context, patternID, domain string, latency time.Duration) error
	RecordFailure(ctx context.Context, patternID, domain, reason string) error
	RecordBotDetection(domain string)
}

// SelectorWriter is the subset of *patternstore.SelectorStore the Executor
// updates with selector-chain outcomes.
type SelectorWriter interface {
	RecordOutcome(domain, purpose, selector, kind string, success bool)
}

// VerifierService is the subset of *verifier.Verifier the Executor calls.
type VerifierService interface {
	Verify(directive models.VerificationDirective, content any, text string) models.VerificationOutcome
	CriticalNonRetryableFailure(directive models.VerificationDirective, content any, text string) bool
}

// ChangeObserver is the subset of *predictor.Predictor the Executor calls
// after every completed fetch.
type ChangeObserver interface {
	ObserveContent(domain, urlPattern, hash string, at time.Time) models.ChangePredictionPattern
}

// RendererLookup is the subset of *renderer.Registry the Executor calls.
type RendererLookup interface {
	For(tier models.Tier) (renderer.Renderer, bool)
}

// Config holds the Executor's wall-clock budgets from spec.md §5.
type Config struct {
	OverallTimeout time.Duration
	TierTimeouts   map[models.Tier]time.Duration
}

func DefaultConfig() Config {
	return Config{
		OverallTimeout: 60 * time.Second,
		TierTimeouts: map[models.Tier]time.Duration{
			models.TierIntelligence: 5 * time.Second,
			models.TierLightweight:  10 * time.Second,
			models.TierPlaywright:   30 * time.Second,
		},
	}
}

// Executor runs a Plan to completion, recording a Decision Trace and
// folding the outcome back into the Pattern Store, Selector Store, and
// Change Predictor. It holds no per-fetch state; every field is a shared,
// long-lived dependency safe for concurrent use across fetches.
type Executor struct {
	cfg        Config
	renderers  RendererLookup
	patterns   PatternWriter
	selectors  SelectorWriter
	verifier   VerifierService
	predictor  ChangeObserver
	httpClient *http.Client
	walker     *contentmap.Walker
	publisher  EventPublisher
}

func New(cfg Config, renderers RendererLookup, patterns PatternWriter, selectors SelectorWriter, verifierSvc VerifierService, predictorSvc ChangeObserver, httpClient *http.Client) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{
		cfg:        cfg,
		renderers:  renderers,
		patterns:   patterns,
		selectors:  selectors,
		verifier:   verifierSvc,
		predictor:  predictorSvc,
		httpClient: httpClient,
		walker:     contentmap.NewWalker(),
	}
}

// SetPublisher wires an EventPublisher the Executor pushes KindDecisionTrace
// events through after every fetch attempt, successful or not. Optional: a
// nil publisher (the default) makes this a no-op.
func (e *Executor) SetPublisher(pub EventPublisher) {
	e.publisher = pub
}

func (e *Executor) publishTrace(tenant string, trace models.DecisionTrace) {
	if e.publisher != nil {
		e.publisher.Publish(events.KindDecisionTrace, tenant, trace, time.Now())
	}
}

// Fetch runs plan's tier sequence against canonicalURL (already produced by
// the Planner) to completion. Exactly one terminal *apierrors.Error is
// returned on failure; every intermediate tier failure is captured in the
// returned Result's DecisionTrace, even when Fetch itself fails (spec.md
// §4.2/§7).
func (e *Executor) Fetch(ctx context.Context, tenant string, plan models.Plan, canonicalURL string, session models.Session, directive models.VerificationDirective) (models.Result, error) {
	start := time.Now()

	domain, err := domainutil.Domain(canonicalURL)
	if err != nil {
		return models.Result{}, apierrors.InvalidUrl(canonicalURL, err)
	}
	urlPattern := domainutil.NormalizePattern(canonicalURL)

	if plan.Empty() {
		return models.Result{}, apierrors.NoViableTier("plan has no viable tier sequence")
	}

	if e.cfg.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.OverallTimeout)
		defer cancel()
	}

	trace := models.DecisionTrace{}
	var tiersAttempted []models.Tier

	for i, tier := range plan.TierSequence {
		if err := ctx.Err(); err != nil {
			trace.Summary = models.TraceSummary{TiersAttempted: len(trace.Tiers), SelectorsAttempted: len(trace.Selectors)}
			e.publishTrace(tenant, trace)
			return models.Result{DecisionTrace: trace}, apierrors.FetchTimeout(time.Since(start).Milliseconds())
		}

		tiersAttempted = append(tiersAttempted, tier)
		tierStart := time.Now()

		var (
			out                models.RenderOutput
			verifyContent      any
			extractionStrategy string
			usedPatternID      string
			tierErr            error
		)

		if tier == models.TierPatternInvoke {
			var res patternInvokeResult
			res, tierErr = e.tryPatterns(ctx, plan.CandidatePatterns, canonicalURL, session)
			out, verifyContent, extractionStrategy, usedPatternID = res.out, res.content, res.strategy, res.patternID
		} else {
			out, tierErr = e.tryRenderer(ctx, tier, canonicalURL, session, plan.CandidateSelectors, &trace)
			extractionStrategy = string(tier)
			verifyContent = syntheticContent(out)
		}

		duration := time.Since(tierStart)

		if tierErr != nil {
			var apiErr *apierrors.Error
			if errors.As(tierErr, &apiErr) && apiErr.Kind == apierrors.KindBotDetected {
				e.patterns.RecordBotDetection(domain)
				trace.Tiers = append(trace.Tiers, models.TierAttempt{Tier: tier, Duration: duration, Success: false, ExtractionStrategy: extractionStrategy, FailureReason: tierErr.Error()})
				trace.Summary = models.TraceSummary{TiersAttempted: len(trace.Tiers), SelectorsAttempted: len(trace.Selectors)}
				e.publishTrace(tenant, trace)
				return models.Result{DecisionTrace: trace, Metadata: models.ResultMetadata{LoadTime: time.Since(start), TiersAttempted: tiersAttempted}}, apierrors.BotDetected(domain)
			}
			if tier == models.TierPatternInvoke && usedPatternID != "" {
				if err := e.patterns.RecordFailure(ctx, usedPatternID, domain, tierErr.Error()); err != nil {
					log.Printf("executor: record pattern failure: %v", err)
				}
			}
			trace.Tiers = append(trace.Tiers, models.TierAttempt{Tier: tier, Duration: duration, Success: false, ExtractionStrategy: extractionStrategy, FailureReason: tierErr.Error()})
			continue
		}

		outcome := e.verifier.Verify(directive, verifyContent, out.Text)

		if !outcome.Passed {
			if e.verifier.CriticalNonRetryableFailure(directive, verifyContent, out.Text) {
				trace.Tiers = append(trace.Tiers, models.TierAttempt{Tier: tier, Duration: duration, Success: false, ExtractionStrategy: extractionStrategy, ValidationDetails: strings.Join(outcome.Errors, "; "), FailureReason: "critical non-retryable check failed"})
				trace.Summary = models.TraceSummary{TiersAttempted: len(trace.Tiers), SelectorsAttempted: len(trace.Selectors)}
				e.publishTrace(tenant, trace)
				return models.Result{DecisionTrace: trace, Metadata: models.ResultMetadata{LoadTime: time.Since(start), TiersAttempted: tiersAttempted}}, apierrors.ValidationFailed(outcome.Errors)
			}
			if tier == models.TierPatternInvoke && usedPatternID != "" {
				if err := e.patterns.RecordFailure(ctx, usedPatternID, domain, "validation failed"); err != nil {
					log.Printf("executor: record pattern failure: %v", err)
				}
			}
			trace.Tiers = append(trace.Tiers, models.TierAttempt{Tier: tier, Duration: duration, Success: false, ExtractionStrategy: extractionStrategy, ValidationDetails: strings.Join(outcome.Errors, "; "), FailureReason: "verification failed"})
			if i == len(plan.TierSequence)-1 {
				trace.Summary = models.TraceSummary{TiersAttempted: len(trace.Tiers), SelectorsAttempted: len(trace.Selectors)}
				e.publishTrace(tenant, trace)
				return models.Result{DecisionTrace: trace, Verification: outcome, Metadata: models.ResultMetadata{LoadTime: time.Since(start), TiersAttempted: tiersAttempted}}, apierrors.ValidationFailed(outcome.Errors)
			}
			continue
		}

		trace.Tiers = append(trace.Tiers, models.TierAttempt{Tier: tier, Duration: duration, Success: true, ExtractionStrategy: extractionStrategy, ValidationDetails: strings.Join(outcome.Errors, "; ")})
		trace.Summary = models.TraceSummary{FinalTier: tier, TiersAttempted: len(trace.Tiers), SelectorsAttempted: len(trace.Selectors)}

		if tier == models.TierPatternInvoke && usedPatternID != "" {
			if err := e.patterns.RecordSuccess(ctx, usedPatternID, domain, duration); err != nil {
				log.Printf("executor: record pattern success: %v", err)
			}
		}

		discovered := e.observeNetworkLog(ctx, domain, tier, out.NetworkLog)

		hash := contentHash(out)
		e.predictor.ObserveContent(domain, urlPattern, hash, time.Now())

		e.publishTrace(tenant, trace)
		return models.Result{
			FinalURL:       out.FinalURL,
			Title:          out.Title,
			Content:        models.Content{Markdown: out.Markdown, Text: out.Text, HTML: out.HTML},
			Tables:         out.Tables,
			DiscoveredAPIs: discovered,
			Verification:   outcome,
			Metadata:       models.ResultMetadata{LoadTime: time.Since(start), Tier: tier, TiersAttempted: tiersAttempted},
			DecisionTrace:  trace,
		}, nil
	}

	trace.Summary = models.TraceSummary{TiersAttempted: len(trace.Tiers), SelectorsAttempted: len(trace.Selectors)}
	e.publishTrace(tenant, trace)
	return models.Result{DecisionTrace: trace, Metadata: models.ResultMetadata{TiersAttempted: tiersAttempted}}, apierrors.NoViableTier("every planned tier failed")
}

// tryRenderer invokes a rendering-tier Renderer under its per-tier timeout,
// and — when HTML is available and the Plan carries candidate selector
// chains — layers learned-selector extraction on top of the renderer's own
// output, recording every attempt to trace.Selectors/trace.Titles.
func (e *Executor) tryRenderer(ctx context.Context, tier models.Tier, canonicalURL string, session models.Session, chains []models.SelectorChain, trace *models.DecisionTrace) (models.RenderOutput, error) {
	rend, ok := e.renderers.For(tier)
	if !ok {
		return models.RenderOutput{}, fmt.Errorf("no renderer registered for tier %s", tier)
	}

	timeout := e.cfg.TierTimeouts[tier]
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := rend.Render(ctx, canonicalURL, session)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.RenderOutput{}, apierrors.FetchTimeout(timeout.Milliseconds())
		}
		if looksLikeBotDetection(err) {
			return models.RenderOutput{}, apierrors.Wrap(apierrors.KindBotDetected, "anti-bot page detected", err)
		}
		return models.RenderOutput{}, apierrors.RenderFailed(string(tier), err)
	}

	domain, domErr := domainutil.Domain(canonicalURL)
	if domErr == nil && len(chains) > 0 && out.HTML != "" {
		attempts, resolved := applySelectorChains(out.HTML, chains)
		trace.Selectors = append(trace.Selectors, attempts...)
		for _, a := range attempts {
			purpose := purposeOf(chains, a.Selector)
			e.selectors.RecordOutcome(domain, purpose, a.Selector, "css", a.Matched)
		}
		if v, ok := resolved["title"]; ok {
			trace.Titles = append(trace.Titles,
				models.TitleAttempt{Source: string(tier), Value: out.Title, Found: out.Title != ""},
				models.TitleAttempt{Source: "selector-chain", Value: v, Found: true, Selected: true},
			)
			out.Title = v
		} else if out.Title != "" {
			trace.Titles = append(trace.Titles, models.TitleAttempt{Source: string(tier), Value: out.Title, Found: true, Selected: true})
		}
		if v, ok := resolved["body"]; ok && v != "" {
			out.Text = v
			out.Markdown = v
		}
	} else if out.Title != "" {
		trace.Titles = append(trace.Titles, models.TitleAttempt{Source: string(tier), Value: out.Title, Found: true, Selected: true})
	}

	return out, nil
}

func purposeOf(chains []models.SelectorChain, selector string) string {
	for _, c := range chains {
		for _, s := range c.Selectors {
			if s.Selector == selector {
				return c.Purpose
			}
		}
	}
	return "unknown"
}

func looksLikeBotDetection(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "captcha") || strings.Contains(msg, "bot detection") || strings.Contains(msg, "access denied")
}

// syntheticContent builds the generic field map used to verify rendered
// (non-pattern-invoke) tiers, since those have no structured API response
// to walk: callers' fieldExists/fieldMatches checks against rendered pages
// address these four well-known fields.
func syntheticContent(out models.RenderOutput) map[string]any {
	return map[string]any{"title": out.Title, "text": out.Text, "markdown": out.Markdown, "html": out.HTML}
}

func contentHash(out models.RenderOutput) string {
	h := sha256.Sum256([]byte(out.Title + "\x00" + out.Text))
	return hex.EncodeToString(h[:])
}

// observeNetworkLog scores every captured request for API-likeness,
// applies the tier-aware degradation rule, and persists newly observed
// patterns at a low initial confidence (spec.md §3 "Lifecycle", §4.3).
// Store errors are logged, never surfaced — side channels never fail a
// fetch (spec.md §7).
func (e *Executor) observeNetworkLog(ctx context.Context, domain string, tier models.Tier, netlog []models.NetworkRequest) []models.APIPattern {
	var discovered []models.APIPattern
	for _, req := range netlog {
		cls := apianalyzer.Classify(req)
		if !cls.IsAPI {
			continue
		}
		degraded, keep := apianalyzer.DegradeForTier(cls.Confidence, tier)
		if !keep {
			continue
		}
		pattern := compileObservedPattern(req, domain)
		if pattern.ID == "" && len(pattern.URLPatterns) == 0 {
			continue
		}
		id, err := e.patterns.Upsert(ctx, pattern)
		if err != nil {
			log.Printf("executor: upsert observed pattern: %v", err)
			continue
		}
		pattern.ID = id
		// Only patterns that already cleared the eligibility bar are
		// surfaced as "discovered" to the caller; below-eligible ones are
		// still stored so repeated observation can raise their confidence
		// into eligibility over time (spec.md §3 Lifecycle).
		if apianalyzer.Eligible(degraded) {
			discovered = append(discovered, pattern)
		}
	}
	return discovered
}
