package optimizer

import (
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

// Store holds every proposed Optimization, grouped by workflow, and
// enforces spec.md §4.8's "only one optimization per workflow is promoted
// at a time" rule.
type Store struct {
	mu   sync.RWMutex
	byWF map[string]map[string]models.Optimization // workflowID -> optimizationID -> Optimization
}

func NewStore() *Store {
	return &Store{byWF: make(map[string]map[string]models.Optimization)}
}

// Propose records a newly detected Optimization, assigning it an id. A
// proposal identical in strategy+shortcut step to an existing one for the
// same workflow is treated as a repeat sighting rather than a duplicate.
func (s *Store) Propose(opt models.Optimization) models.Optimization {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	workflowOpts, ok := s.byWF[opt.WorkflowID]
	if !ok {
		workflowOpts = make(map[string]models.Optimization)
		s.byWF[opt.WorkflowID] = workflowOpts
	}

	for id, existing := range workflowOpts {
		if existing.Strategy == opt.Strategy && existing.ShortcutStepNumber == opt.ShortcutStepNumber {
			existing.Confidence = opt.Confidence
			existing.EstimatedSpeedup = opt.EstimatedSpeedup
			existing.UpdatedAt = now
			workflowOpts[id] = existing
			return existing
		}
	}

	opt.ID = uuid.NewString()
	opt.CreatedAt = now
	opt.UpdatedAt = now
	workflowOpts[opt.ID] = opt
	return opt
}

// RecordOutcome folds a replay's use of optimizationID into its metrics
// and, when it now clears the promotion bar, promotes it — demoting
// whichever other optimization for the same workflow was previously
// promoted, since only one may be promoted at a time.
func (s *Store) RecordOutcome(workflowID, optimizationID string, success bool, optimizedDuration, originalDuration time.Duration) (models.Optimization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workflowOpts, ok := s.byWF[workflowID]
	if !ok {
		return models.Optimization{}, errNotFound(optimizationID)
	}
	opt, ok := workflowOpts[optimizationID]
	if !ok {
		return models.Optimization{}, errNotFound(optimizationID)
	}

	opt.Metrics.RecordOutcome(success, optimizedDuration, originalDuration)
	opt.UpdatedAt = time.Now()

	if !opt.Promoted && opt.EligibleForPromotion() {
		for id, other := range workflowOpts {
			if id != optimizationID && other.Promoted {
				other.Promoted = false
				workflowOpts[id] = other
			}
		}
		opt.Promoted = true
	}

	workflowOpts[optimizationID] = opt
	return opt, nil
}

// Promoted returns the currently promoted optimization for a workflow, if
// any — the one a Replayer should actually use to shortcut a replay.
func (s *Store) Promoted(workflowID string) (models.Optimization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, opt := range s.byWF[workflowID] {
		if opt.Promoted {
			return opt, true
		}
	}
	return models.Optimization{}, false
}

func (s *Store) List(workflowID string) []models.Optimization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Optimization, 0, len(s.byWF[workflowID]))
	for _, opt := range s.byWF[workflowID] {
		out = append(out, opt)
	}
	return out
}

type notFoundError string

func (e notFoundError) Error() string { return "optimizer: no optimization " + string(e) }

func errNotFound(id string) error { return notFoundError(id) }
