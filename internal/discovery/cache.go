// Package discovery implements the Discovery Cache and Discovery
// Orchestrator from spec.md §4.4: parallel spec-format probing for a
// domain, merged and deduplicated into API Patterns, with TTL caching and
// exponential failed-domain cooldowns so a dead domain is never hammered.
//
// Grounded on the teacher's internal/driven/context_manager.go for the
// per-key map-of-mutexes shape (generalized here to a per-(tenant, source,
// domain) cache entry) and on golang.org/x/sync's documented singleflight
// usage for in-flight probe deduplication (spec.md §5: "single-writer per
// key via a singleflight-style coordinator").
package discovery

import (
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
)

type cacheKey struct {
	Tenant string
	Source models.DiscoverySource
	Domain string
}

type cacheEntry struct {
	result    models.DiscoveryResult
	expiresAt time.Time
}

type cooldownEntry struct {
	failures    int
	nextAllowed time.Time
}

// Cache is the unified TTL cache keyed by (tenant, source, domain) with a
// per-(tenant, source, domain) cooldown table on repeated probe failure.
// Cooldown state and cache entries are isolated per tenant by construction
// (tenant is part of the key), per spec.md §4.4.
type Cache struct {
	ttl      time.Duration
	schedule []time.Duration

	mu        sync.RWMutex
	entries   map[cacheKey]cacheEntry
	cooldowns map[cacheKey]cooldownEntry
}

func NewCache(ttl time.Duration, cooldownSchedule []time.Duration) *Cache {
	if len(cooldownSchedule) == 0 {
		cooldownSchedule = []time.Duration{time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	}
	return &Cache{
		ttl:       ttl,
		schedule:  cooldownSchedule,
		entries:   make(map[cacheKey]cacheEntry),
		cooldowns: make(map[cacheKey]cooldownEntry),
	}
}

// Get returns a non-expired cached result, if any.
func (c *Cache) Get(tenant string, source models.DiscoverySource, domain string) (models.DiscoveryResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey{tenant, source, domain}]
	if !ok || time.Now().After(e.expiresAt) {
		return models.DiscoveryResult{}, false
	}
	return e.result, true
}

// Put stores a probe result with the cache's configured TTL.
func (c *Cache) Put(tenant string, source models.DiscoverySource, domain string, result models.DiscoveryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{tenant, source, domain}] = cacheEntry{result: result, expiresAt: time.Now().Add(c.ttl)}
}

// InCooldown reports whether a (tenant, source, domain) triple is currently
// suppressed by the failed-probe cooldown schedule.
func (c *Cache) InCooldown(tenant string, source models.DiscoverySource, domain string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cd, ok := c.cooldowns[cacheKey{tenant, source, domain}]
	return ok && time.Now().Before(cd.nextAllowed)
}

// RecordFailure advances the exponential cooldown schedule for a probe
// source: 1m, 5m, 30m, 2h, then capped at the schedule's last entry for
// every subsequent failure.
func (c *Cache) RecordFailure(tenant string, source models.DiscoverySource, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{tenant, source, domain}
	cd := c.cooldowns[key]
	cd.failures++
	idx := cd.failures - 1
	if idx >= len(c.schedule) {
		idx = len(c.schedule) - 1
	}
	cd.nextAllowed = time.Now().Add(c.schedule[idx])
	c.cooldowns[key] = cd
}

// RecordSuccess clears cooldown state for a (tenant, source, domain) triple
// so a domain that recovers is probed normally again.
func (c *Cache) RecordSuccess(tenant string, source models.DiscoverySource, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cooldowns, cacheKey{tenant, source, domain})
}

// DomainInCooldown reports whether every known discovery source for
// (tenant, domain) is currently in cooldown — the Planner's signal to omit
// the synthetic pattern-invoke tier rather than trust stale/no discovery
// data (spec.md §4.1's "domain in cooldown from repeated discovery
// failure" edge case).
func (c *Cache) DomainInCooldown(tenant, domain string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for source := range models.SourcePriors {
		cd, ok := c.cooldowns[cacheKey{tenant, source, domain}]
		if !ok || !time.Now().Before(cd.nextAllowed) {
			return false
		}
	}
	return true
}
