package patternstore

import (
	"sort"
	"sync"

	"github.com/fetchweave/fetchsvc/internal/models"
)

// SelectorStore owns per-domain Selector Chains: ordered fallback CSS/XPath
// selector lists per extraction purpose ("title", "body", "price"), each
// self-reordering toward whichever selector keeps working. Same
// map-guarded-by-RWMutex shape as Store's domain map, one level simpler
// since there is no per-entry confidence decay formula to protect with a
// finer lock.
type SelectorStore struct {
	mu     sync.RWMutex
	chains map[string]*models.SelectorChain // key: domain + "|" + purpose
}

func NewSelectorStore() *SelectorStore {
	return &SelectorStore{chains: make(map[string]*models.SelectorChain)}
}

func key(domain, purpose string) string { return domain + "|" + purpose }

// Upsert inserts or replaces a chain for (domain, chain.Purpose).
func (s *SelectorStore) Upsert(chain models.SelectorChain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := chain
	s.chains[key(chain.Domain, chain.Purpose)] = &c
}

// CandidateSelectors returns every chain recorded for a domain, each
// reordered so the selector with the best success/failure ratio is tried
// first.
func (s *SelectorStore) CandidateSelectors(domain string) []models.SelectorChain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SelectorChain
	for k, c := range s.chains {
		if len(k) <= len(domain) || k[:len(domain)] != domain || k[len(domain)] != '|' {
			continue
		}
		cp := *c
		cp.Selectors = append([]models.ChainedSelector(nil), c.Selectors...)
		sort.SliceStable(cp.Selectors, func(i, j int) bool {
			return rate(cp.Selectors[i]) > rate(cp.Selectors[j])
		})
		out = append(out, cp)
	}
	return out
}

func rate(s models.ChainedSelector) float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(total)
}

// RecordOutcome bumps a selector's success/failure counter within its
// chain, creating the chain if this is its first observation.
func (s *SelectorStore) RecordOutcome(domain, purpose, selector, kind string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(domain, purpose)
	c, ok := s.chains[k]
	if !ok {
		c = &models.SelectorChain{Domain: domain, Purpose: purpose}
		s.chains[k] = c
	}

	for i := range c.Selectors {
		if c.Selectors[i].Selector == selector {
			if success {
				c.Selectors[i].SuccessCount++
			} else {
				c.Selectors[i].FailureCount++
			}
			return
		}
	}

	entry := models.ChainedSelector{Selector: selector, Kind: kind}
	if success {
		entry.SuccessCount = 1
	} else {
		entry.FailureCount = 1
	}
	c.Selectors = append(c.Selectors, entry)
}
