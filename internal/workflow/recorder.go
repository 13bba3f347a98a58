// Package workflow implements the Workflow Recorder/Replayer from
// spec.md §4.6: recording a sequence of browse steps into a reusable
// Workflow, and replaying one with variable substitution.
//
// Grounded on the teacher's internal/driven/context_manager.go for the
// map-of-live-sessions-guarded-by-one-RWMutex shape (SiteContextManager's
// GetOrCreate/Get/RemoveContext), generalized from per-host SiteContext
// ownership to per-recording-id ownership.
package workflow

import (
	"fmt"
	"sync"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

// WorkflowStore is the subset of persistence the Recorder hands a frozen
// Workflow to once recording stops with save=true.
type WorkflowStore interface {
	Save(w models.Workflow) (string, error)
}

// Recorder owns every in-progress Recording for a tenant. A Recording is
// exclusively owned by the caller that started it; recordStep/annotateStep
// operate on one recording's steps at a time, so each is locked
// individually rather than under the Recorder's single map lock.
type Recorder struct {
	store WorkflowStore

	mu         sync.RWMutex
	recordings map[string]*recordingEntry
}

type recordingEntry struct {
	mu  sync.Mutex
	rec models.Recording
}

func NewRecorder(store WorkflowStore) *Recorder {
	return &Recorder{
		store:      store,
		recordings: make(map[string]*recordingEntry),
	}
}

// Start begins a new recording for (tenantID, domain, name) and returns its
// id.
func (r *Recorder) Start(tenantID, domain, name string) string {
	id := uuid.NewString()
	entry := &recordingEntry{
		rec: models.Recording{
			ID:        id,
			Name:      name,
			Domain:    domain,
			TenantID:  tenantID,
			StartedAt: time.Now(),
			Status:    models.RecordingInProgress,
		},
	}

	r.mu.Lock()
	r.recordings[id] = entry
	r.mu.Unlock()
	return id
}

func (r *Recorder) find(recordingID string) (*recordingEntry, error) {
	r.mu.RLock()
	entry, ok := r.recordings[recordingID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workflow: unknown recording %q", recordingID)
	}
	return entry, nil
}

// RecordStep appends a step derived from one completed fetch. stepNumber is
// assigned automatically from the current step count.
func (r *Recorder) RecordStep(recordingID string, action models.StepAction, res models.Result, importance models.StepImportance) error {
	entry, err := r.find(recordingID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.rec.Status != models.RecordingInProgress {
		return fmt.Errorf("workflow: recording %q is not in progress", recordingID)
	}

	step := models.WorkflowStep{
		StepNumber: len(entry.rec.Steps) + 1,
		Action:     action,
		URL:        res.FinalURL,
		Importance: importance,
		Duration:   res.Metadata.LoadTime,
		Tier:       string(res.Metadata.Tier),
		Success:    res.Verification.Passed,
	}
	entry.rec.Steps = append(entry.rec.Steps, step)
	return nil
}

// AnnotateStep mutates one already-recorded step in place.
func (r *Recorder) AnnotateStep(recordingID string, stepNumber int, annotation string, importance models.StepImportance) error {
	entry, err := r.find(recordingID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	for i := range entry.rec.Steps {
		if entry.rec.Steps[i].StepNumber == stepNumber {
			entry.rec.Steps[i].Annotation = annotation
			if importance != "" {
				entry.rec.Steps[i].Importance = importance
			}
			return nil
		}
	}
	return fmt.Errorf("workflow: recording %q has no step %d", recordingID, stepNumber)
}

// Stop freezes the recording. When save is true, the accumulated steps are
// persisted as a new Workflow and the generated Workflow is returned;
// discarded recordings return the zero Workflow. Either way the recording
// itself is removed from the live map once stopped.
func (r *Recorder) Stop(recordingID string, save bool) (models.Workflow, error) {
	entry, err := r.find(recordingID)
	if err != nil {
		return models.Workflow{}, err
	}

	entry.mu.Lock()
	if !save {
		entry.rec.Status = models.RecordingDiscarded
		entry.mu.Unlock()
		r.mu.Lock()
		delete(r.recordings, recordingID)
		r.mu.Unlock()
		return models.Workflow{}, nil
	}
	entry.rec.Status = models.RecordingSaved
	now := time.Now()
	wf := models.Workflow{
		Name:      entry.rec.Name,
		Domain:    entry.rec.Domain,
		TenantID:  entry.rec.TenantID,
		Steps:     entry.rec.Steps,
		Version:   1,
		CreatedAt: entry.rec.StartedAt,
		UpdatedAt: now,
	}
	entry.mu.Unlock()

	r.mu.Lock()
	delete(r.recordings, recordingID)
	r.mu.Unlock()

	if r.store != nil {
		id, err := r.store.Save(wf)
		if err != nil {
			return models.Workflow{}, fmt.Errorf("workflow: save recording %q: %w", recordingID, err)
		}
		wf.ID = id
	}
	return wf, nil
}
