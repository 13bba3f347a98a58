// Package storage holds the in-memory persistence the httpapi edge uses for
// Workflows (spec.md §6's `workflows(id, tenant_id, domain, payload_blob,
// usage_count, success_rate)` logical table).
//
// Adapted from the teacher's own MemoryStorage: the same
// map-keyed-by-id-guarded-by-one-RWMutex CRUD shape, repurposed from
// storing captured proxy requests to storing recorded Workflows, with
// tenant-scoped listing and soft delete added since Workflow is the
// tenant-owned, soft-deletable record spec.md §3 describes.
package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

// WorkflowStore is the process-wide in-memory Workflow table. Safe for
// concurrent use.
type WorkflowStore struct {
	mu        sync.RWMutex
	workflows map[string]models.Workflow
}

func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{workflows: make(map[string]models.Workflow)}
}

// Save assigns a new id to w (if it doesn't already have one) and stores
// it, satisfying workflow.WorkflowStore.
func (s *WorkflowStore) Save(w models.Workflow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	w.UpdatedAt = time.Now()
	s.workflows[w.ID] = w
	return w.ID, nil
}

// Update overwrites an existing Workflow by id, satisfying
// workflow.WorkflowUpdater. It is an error to update a workflow that was
// never Saved.
func (s *WorkflowStore) Update(w models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[w.ID]; !ok {
		return fmt.Errorf("storage: workflow %q not found", w.ID)
	}
	s.workflows[w.ID] = w
	return nil
}

// Get returns the Workflow with id, including soft-deleted ones.
func (s *WorkflowStore) Get(id string) (models.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	return w, ok
}

// List returns every non-deleted Workflow owned by tenantID, in no
// particular order.
func (s *WorkflowStore) List(tenantID string) []models.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		if w.TenantID == tenantID && !w.Deleted {
			out = append(out, w)
		}
	}
	return out
}

// Delete soft-deletes the Workflow with id, preserving the record for
// audit/replay history rather than erasing it outright.
func (s *WorkflowStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return fmt.Errorf("storage: workflow %q not found", id)
	}
	w.Deleted = true
	w.UpdatedAt = time.Now()
	s.workflows[id] = w
	return nil
}
