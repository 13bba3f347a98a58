// Package patternstore is the exclusive owner of API Pattern rows and
// per-domain aggregates (spec.md §3 "Ownership"). It exposes the
// findMatchingPatterns/upsert/recordSuccess/recordFailure/domainIntelligence
// surface the Planner reads from and the Executor writes outcomes through.
//
// Grounded on the teacher's internal/driven/context_manager.go for the
// per-key locking and map-of-mutexes shape, generalized from per-host
// SiteContext ownership to per-domain DomainContext + per-pattern-id
// ownership (spec.md §5 requires "many readers, few writers... writes use
// per-pattern-id locking", one level finer-grained than the teacher's
// per-host lock).
package patternstore

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/limits"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

// Config holds the confidence-update and eligibility constants from
// spec.md §4.3.
type Config struct {
	Alpha                 float64
	Beta                  float64
	EligibleMinConfidence float64
	EligibleMinSuccesses  int
	EligibleMaxAge        time.Duration
	StaleGCMaxAge         time.Duration
	StaleGCMaxConfidence  float64
}

// patternEntry pairs a pattern with its own mutex so concurrent writers to
// different patterns never contend.
type patternEntry struct {
	mu      sync.Mutex
	pattern models.APIPattern
}

// Store is the in-memory Pattern Store. It is safe for concurrent use; the
// read path (FindMatching, DomainIntelligence) never blocks on a write to
// an unrelated pattern or domain.
type Store struct {
	cfg Config

	mu       sync.RWMutex // guards the two top-level maps only
	patterns map[string]*patternEntry
	domains  map[string]*models.DomainContext

	compiledMu sync.Mutex
	compiled   map[string]*regexp.Regexp

	maxDomains    int
	sweepTicker   *time.Ticker
	sweepStopChan chan struct{}
}

func New(cfg Config) *Store {
	return &Store{
		cfg:        cfg,
		patterns:   make(map[string]*patternEntry),
		domains:    make(map[string]*models.DomainContext),
		compiled:   make(map[string]*regexp.Regexp),
		maxDomains: 10000,
	}
}

// StartBackgroundSweep periodically runs per-domain Cleanup() and evicts the
// least-recently-active domain once maxDomains is exceeded, so a
// long-running service's per-domain memory footprint stays bounded without
// an operator having to restart it. Grounded on the teacher's
// SiteContextManager ticker + evictOldestContext pattern
// (internal/driven/context_manager.go). Call Stop to halt it.
func (s *Store) StartBackgroundSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.sweepTicker = time.NewTicker(interval)
	s.sweepStopChan = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.sweepTicker.C:
				s.sweepDomains()
			case <-s.sweepStopChan:
				return
			}
		}
	}()
}

// Stop halts the background sweep started by StartBackgroundSweep, if any.
func (s *Store) Stop() {
	if s.sweepTicker != nil {
		close(s.sweepStopChan)
		s.sweepTicker.Stop()
		s.sweepTicker = nil
	}
}

func (s *Store) sweepDomains() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dc := range s.domains {
		dc.Cleanup()
	}

	if len(s.domains) <= s.maxDomains {
		return
	}
	var oldestDomain string
	oldestActivity := time.Now().Unix()
	for domain, dc := range s.domains {
		snap := dc.Snapshot()
		last := snap.LastObserved.Unix()
		if last < oldestActivity {
			oldestActivity = last
			oldestDomain = domain
		}
	}
	if oldestDomain != "" {
		delete(s.domains, oldestDomain)
		log.Printf("patternstore: evicted oldest domain context %s", oldestDomain)
	}
}

func (s *Store) domainFor(domain string) *models.DomainContext {
	s.mu.RLock()
	dc, ok := s.domains[domain]
	s.mu.RUnlock()
	if ok {
		return dc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if dc, ok := s.domains[domain]; ok {
		return dc
	}
	dc = models.NewDomainContextWithLimiter(domain, limits.NewDomainLimiter(nil))
	s.domains[domain] = dc
	return dc
}

func (s *Store) regex(pattern string) (*regexp.Regexp, error) {
	s.compiledMu.Lock()
	defer s.compiledMu.Unlock()
	if re, ok := s.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	s.compiled[pattern] = re
	return re, nil
}

// Upsert inserts or replaces a pattern. Patterns created by spec parsers
// arrive with high initial confidence already set by the caller (spec.md
// §3 "Lifecycle"); Upsert does not second-guess the caller's confidence.
func (s *Store) Upsert(ctx context.Context, p models.APIPattern) (string, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.mu.Lock()
	entry, ok := s.patterns[p.ID]
	if !ok {
		entry = &patternEntry{}
		s.patterns[p.ID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	entry.pattern = p
	entry.mu.Unlock()
	return p.ID, nil
}

// FindMatchingPatterns returns every pattern whose URLPatterns regex
// matches the given canonical URL, sorted by
// (confidence desc, lastSuccess desc, successCount desc) per spec.md §4.1.
func (s *Store) FindMatchingPatterns(ctx context.Context, canonicalURL string) ([]models.APIPattern, error) {
	s.mu.RLock()
	entries := make([]*patternEntry, 0, len(s.patterns))
	for _, e := range s.patterns {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var matches []models.APIPattern
	for _, e := range entries {
		e.mu.Lock()
		p := e.pattern
		e.mu.Unlock()

		for _, pat := range p.URLPatterns {
			re, err := s.regex(pat)
			if err != nil {
				continue // a malformed stored regex should never fail the whole lookup
			}
			if re.MatchString(canonicalURL) {
				matches = append(matches, p)
				break
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].Metrics, matches[j].Metrics
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.LastSuccess.Equal(b.LastSuccess) {
			return a.LastSuccess.After(b.LastSuccess)
		}
		return a.SuccessCount > b.SuccessCount
	})
	return matches, nil
}

// EligiblePatterns filters FindMatchingPatterns' result down to patterns
// that pass the bypass-eligibility threshold (spec.md §4.3).
func (s *Store) EligiblePatterns(ctx context.Context, canonicalURL string) ([]models.APIPattern, error) {
	all, err := s.FindMatchingPatterns(ctx, canonicalURL)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Eligible(s.cfg.EligibleMinConfidence, s.cfg.EligibleMinSuccesses, s.cfg.EligibleMaxAge) {
			out = append(out, p)
		}
	}
	return out, nil
}

// RecordSuccess applies the success confidence update and appends to the
// domain's rolling success counters.
func (s *Store) RecordSuccess(ctx context.Context, patternID string, domain string, latency time.Duration) error {
	s.mu.RLock()
	entry, ok := s.patterns[patternID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("patternstore: unknown pattern %q", patternID)
	}

	entry.mu.Lock()
	entry.pattern.ApplySuccess(s.cfg.Alpha, time.Now())
	entry.mu.Unlock()

	if domain != "" {
		s.domainFor(domain).RecordFetch(models.RecentFetch{
			ID: patternID, TimestampUnix: time.Now().Unix(), Success: true,
			Tier: models.TierPatternInvoke, DurationMs: latency.Milliseconds(),
		})
	}
	return nil
}

// RecordFailure applies the failure confidence decay. reason is recorded
// for observability only; it does not affect the decay formula.
func (s *Store) RecordFailure(ctx context.Context, patternID string, domain string, reason string) error {
	s.mu.RLock()
	entry, ok := s.patterns[patternID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("patternstore: unknown pattern %q", patternID)
	}

	entry.mu.Lock()
	entry.pattern.ApplyFailure(s.cfg.Beta, time.Now())
	entry.mu.Unlock()

	if domain != "" {
		s.domainFor(domain).RecordFetch(models.RecentFetch{
			ID: patternID, TimestampUnix: time.Now().Unix(), Success: false,
			Tier: models.TierPatternInvoke,
		})
	}
	return nil
}

// RecordBotDetection bumps the per-domain anti-bot counter the Planner's
// botDetectionLikely confidence factor reads.
func (s *Store) RecordBotDetection(domain string) {
	s.domainFor(domain).RecordBotDetection()
}

// DomainIntelligence returns the read-side aggregate for a domain,
// combining the DomainContext rolling counters with pattern/selector
// counts owned by this Store.
func (s *Store) DomainIntelligence(ctx context.Context, domain string) (models.DomainIntelligence, error) {
	dc := s.domainFor(domain)
	intel := dc.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.patterns {
		e.mu.Lock()
		for _, src := range e.pattern.Metrics.SourceDomains {
			if src == domain {
				intel.KnownPatternCount++
				break
			}
		}
		e.mu.Unlock()
	}
	return intel, nil
}

// GC evicts patterns whose confidence is at or below StaleGCMaxConfidence,
// that were last updated more than StaleGCMaxAge ago, and that have never
// succeeded, per the Open Question resolved in SPEC_FULL.md. Disabled
// (no-op) when StaleGCMaxAge is zero.
func (s *Store) GC() int {
	if s.cfg.StaleGCMaxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-s.cfg.StaleGCMaxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.patterns {
		e.mu.Lock()
		stale := e.pattern.Metrics.Confidence <= s.cfg.StaleGCMaxConfidence &&
			e.pattern.UpdatedAt.Before(cutoff) &&
			e.pattern.Metrics.SuccessCount == 0
		e.mu.Unlock()
		if stale {
			delete(s.patterns, id)
			removed++
		}
	}
	return removed
}
