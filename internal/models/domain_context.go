package models

import (
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/limits"
)

// DomainContext is the mutable, bounded aggregate the Pattern Store holds
// per domain: recent fetches, extracted forms, CRUD resource maps, and the
// rolling counters behind DomainIntelligence. Adapted directly from the
// teacher's SiteContext (internal/models/site_context.go) — same
// mutex-guarded bounded-collection shape, same eviction-on-limit behavior —
// retargeted from recon notes to fetch intelligence.
type DomainContext struct {
	Domain string `json:"domain"`

	RecentFetches []RecentFetch               `json:"recent_fetches,omitempty"`
	Forms         map[string]*ExtractedForm   `json:"forms,omitempty"`
	ResourceCRUD  map[string]*ResourceMapping `json:"resource_crud,omitempty"`

	TotalAttempts int64 `json:"total_attempts"`
	TotalSuccesses int64 `json:"total_successes"`
	BotDetectionFailures int64 `json:"bot_detection_failures"`
	LastActivityUnix int64 `json:"last_activity_unix"`

	mu          sync.RWMutex
	limiter     *limits.DomainLimiter
	lastCleanup int64
}

func NewDomainContext(domain string) *DomainContext {
	return NewDomainContextWithLimiter(domain, nil)
}

func NewDomainContextWithLimiter(domain string, limiter *limits.DomainLimiter) *DomainContext {
	if limiter == nil {
		limiter = limits.NewDomainLimiter(nil)
	}
	return &DomainContext{
		Domain:       domain,
		RecentFetches: make([]RecentFetch, 0, limiter.Limits().MaxRecentFetches),
		Forms:        make(map[string]*ExtractedForm),
		ResourceCRUD: make(map[string]*ResourceMapping),
		limiter:      limiter,
		lastCleanup:  time.Now().Unix(),
	}
}

// RecordFetch appends a fetch outcome, evicting the oldest entry once the
// limiter's cap is exceeded, and updates the rolling success/attempt
// counters that feed DomainIntelligence.RollingSuccessRate.
func (dc *DomainContext) RecordFetch(f RecentFetch) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.limiter.ShouldEvict(f.TimestampUnix) {
		return
	}

	dc.RecentFetches = append(dc.RecentFetches, f)
	maxN := dc.limiter.Limits().MaxRecentFetches
	if len(dc.RecentFetches) > maxN {
		dc.RecentFetches = dc.RecentFetches[len(dc.RecentFetches)-maxN:]
	}

	dc.TotalAttempts++
	if f.Success {
		dc.TotalSuccesses++
	}
	dc.LastActivityUnix = time.Now().Unix()
}

// RecordBotDetection bumps the per-domain anti-bot failure counter the
// Planner's botDetectionLikely confidence factor reads.
func (dc *DomainContext) RecordBotDetection() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.BotDetectionFailures++
	dc.LastActivityUnix = time.Now().Unix()
}

// AddForm upserts an extracted form, evicting the oldest form by
// FirstSeenUnix once the limiter's cap is reached.
func (dc *DomainContext) AddForm(form *ExtractedForm) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.Forms == nil {
		dc.Forms = make(map[string]*ExtractedForm)
	}

	if _, exists := dc.Forms[form.FormID]; !exists {
		if maxN := dc.limiter.Limits().MaxForms; len(dc.Forms) >= maxN {
			dc.evictOldestForm()
		}
	}

	dc.Forms[form.FormID] = form
	dc.LastActivityUnix = time.Now().Unix()
}

func (dc *DomainContext) evictOldestForm() {
	var oldestKey string
	oldestTime := time.Now().Unix()
	for key, f := range dc.Forms {
		if f.FirstSeenUnix < oldestTime {
			oldestTime = f.FirstSeenUnix
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(dc.Forms, oldestKey)
	}
}

// AddResourceMapping upserts a CRUD resource map, evicting the oldest entry
// once the limiter's cap is reached.
func (dc *DomainContext) AddResourceMapping(key string, mapping *ResourceMapping) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.ResourceCRUD == nil {
		dc.ResourceCRUD = make(map[string]*ResourceMapping)
	}

	if _, exists := dc.ResourceCRUD[key]; !exists {
		if maxN := dc.limiter.Limits().MaxResourceMaps; len(dc.ResourceCRUD) >= maxN {
			dc.evictOldestResource()
		}
	}

	dc.ResourceCRUD[key] = mapping
	dc.LastActivityUnix = time.Now().Unix()
}

func (dc *DomainContext) evictOldestResource() {
	var oldestKey string
	oldestTime := time.Now().Unix()
	for k, r := range dc.ResourceCRUD {
		if r.DetectedAtUnix < oldestTime {
			oldestTime = r.DetectedAtUnix
			oldestKey = k
		}
	}
	if oldestKey != "" {
		delete(dc.ResourceCRUD, oldestKey)
	}
}

// Cleanup evicts time-expired fetches/forms/resources. Intended to run
// periodically from a background sweep, not inline on the hot path.
func (dc *DomainContext) Cleanup() {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	kept := dc.RecentFetches[:0]
	for _, f := range dc.RecentFetches {
		if !dc.limiter.ShouldEvict(f.TimestampUnix) {
			kept = append(kept, f)
		}
	}
	dc.RecentFetches = kept

	for key, form := range dc.Forms {
		if dc.limiter.ShouldEvict(form.FirstSeenUnix) {
			delete(dc.Forms, key)
		}
	}
	for key, res := range dc.ResourceCRUD {
		if dc.limiter.ShouldEvict(res.DetectedAtUnix) {
			delete(dc.ResourceCRUD, key)
		}
	}

	dc.lastCleanup = time.Now().Unix()
}

// MemoryUsage returns the limiter's rough byte estimate for this domain's
// footprint. The Pattern Store's background sweep does not read it; it
// evicts domains by last activity.
func (dc *DomainContext) MemoryUsage() int64 {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.limiter.EstimateMemoryUsage()
}

// Snapshot returns a DomainIntelligence read-view, independent of how many
// API Patterns/selector chains the Pattern Store additionally tracks for
// this domain (those are folded in by the caller, since the Pattern Store
// — not DomainContext — owns pattern rows).
func (dc *DomainContext) Snapshot() DomainIntelligence {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	rate := 0.0
	if dc.TotalAttempts > 0 {
		rate = float64(dc.TotalSuccesses) / float64(dc.TotalAttempts)
	}
	return DomainIntelligence{
		Domain:               dc.Domain,
		RollingSuccessRate:   rate,
		TotalAttempts:        dc.TotalAttempts,
		TotalSuccesses:       dc.TotalSuccesses,
		BotDetectionFailures: dc.BotDetectionFailures,
		LastObserved:         time.Unix(dc.LastActivityUnix, 0),
		ShouldUseSession:     len(dc.Forms) > 0,
	}
}
