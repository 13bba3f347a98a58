package discovery

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/patternstore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PatternSink is the subset of *patternstore.Store the Orchestrator writes
// compiled patterns into. Accepting an interface here (rather than the
// concrete type) keeps discovery independently testable with a fake.
type PatternSink interface {
	Upsert(ctx context.Context, p models.APIPattern) (string, error)
}

var _ PatternSink = (*patternstore.Store)(nil)

// MergedResult is the Orchestrator's per-domain aggregate: one
// DiscoveryResult per source plus the deduplicated pattern set compiled
// from all of them, per the merge rule in spec.md §4.4.
type MergedResult struct {
	Domain    string
	PerSource map[models.DiscoverySource]models.DiscoveryResult
	Spec      *models.ParsedSpec // from the highest-priority found=true source
	Patterns  []models.APIPattern
}

// Orchestrator runs every registered Parser for a domain in parallel,
// respecting the Discovery Cache's TTL and cooldown state, merges their
// output, and persists the resulting patterns to the Pattern Store.
type Orchestrator struct {
	parsers []Parser
	cache   *Cache
	sink    PatternSink
	limits  *rateLimiterPool

	flight singleflight.Group
}

func NewOrchestrator(parsers []Parser, cache *Cache, sink PatternSink, rateInterval time.Duration, rateBurst int) *Orchestrator {
	return &Orchestrator{
		parsers: parsers,
		cache:   cache,
		sink:    sink,
		limits:  newRateLimiterPool(rateInterval, rateBurst),
	}
}

// Discover runs discovery for a domain, deduplicating concurrent callers
// for the same (tenant, domain) onto a single in-flight probe set (spec.md
// §5's singleflight-style coordinator requirement).
func (o *Orchestrator) Discover(ctx context.Context, tenant, domain string) (MergedResult, error) {
	key := tenant + "\x00" + domain
	v, err, _ := o.flight.Do(key, func() (any, error) {
		return o.discover(ctx, tenant, domain)
	})
	if err != nil {
		return MergedResult{}, err
	}
	return v.(MergedResult), nil
}

func (o *Orchestrator) discover(ctx context.Context, tenant, domain string) (MergedResult, error) {
	results := make([]models.DiscoveryResult, len(o.parsers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range o.parsers {
		i, p := i, p
		g.Go(func() error {
			results[i] = o.probeOne(gctx, tenant, domain, p)
			return nil // a single source's error never fails the group (spec.md §7 DiscoveryError)
		})
	}
	_ = g.Wait() // errors are per-source and already folded into results[i].Error

	return o.merge(domain, results), nil
}

func (o *Orchestrator) probeOne(ctx context.Context, tenant, domain string, p Parser) models.DiscoveryResult {
	source := p.Source()

	if cached, ok := o.cache.Get(tenant, source, domain); ok {
		return cached
	}
	if o.cache.InCooldown(tenant, source, domain) {
		return models.DiscoveryResult{Source: source, Domain: domain, Found: false, DiscoveryTime: time.Now()}
	}
	if !o.limits.forDomain(domain).Allow() {
		return models.DiscoveryResult{Source: source, Domain: domain, Found: false, Error: "rate limited", DiscoveryTime: time.Now()}
	}

	start := time.Now()
	result, err := p.Probe(ctx, domain)
	result.Duration = time.Since(start)
	result.DiscoveryTime = time.Now()
	result.Source = source
	result.Domain = domain

	if err != nil {
		result.Found = false
		result.Error = err.Error()
		log.Printf("discovery: %s probe for %s failed: %v", source, domain, err)
	}

	if result.Found {
		o.cache.RecordSuccess(tenant, source, domain)
	} else {
		o.cache.RecordFailure(tenant, source, domain)
	}
	o.cache.Put(tenant, source, domain, result)
	return result
}

// merge dedupes patterns by (source, domain, method, path-template) and
// picks the spec from the highest-priority found=true source, per spec.md
// §4.4. Deduplicated patterns are upserted into the Pattern Store.
func (o *Orchestrator) merge(domain string, results []models.DiscoveryResult) MergedResult {
	sorted := make([]models.DiscoveryResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return models.SourcePriors[sorted[i].Source] > models.SourcePriors[sorted[j].Source]
	})

	merged := MergedResult{Domain: domain, PerSource: make(map[models.DiscoverySource]models.DiscoveryResult, len(results))}
	for _, r := range results {
		merged.PerSource[r.Source] = r
	}

	seen := make(map[string]bool)
	var patterns []models.APIPattern
	for _, r := range sorted {
		if !r.Found {
			continue
		}
		if merged.Spec == nil && r.Spec != nil {
			merged.Spec = r.Spec
		}
		for _, p := range r.Patterns {
			key := dedupeKey(r.Source, domain, p)
			if seen[key] {
				continue
			}
			seen[key] = true
			patterns = append(patterns, p)
		}
	}
	merged.Patterns = patterns

	if o.sink != nil {
		for _, p := range patterns {
			if _, err := o.sink.Upsert(context.Background(), p); err != nil {
				log.Printf("discovery: failed to persist pattern for %s: %v", domain, err)
			}
		}
	}
	return merged
}

func dedupeKey(source models.DiscoverySource, domain string, p models.APIPattern) string {
	method := p.Method
	path := p.EndpointTemplate
	return string(source) + "|" + domain + "|" + method + "|" + path
}
