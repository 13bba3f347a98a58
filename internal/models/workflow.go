package models

import "time"

// StepAction enumerates the browsing actions a Workflow Step may record.
type StepAction string

const (
	ActionNavigate     StepAction = "navigate"
	ActionClick        StepAction = "click"
	ActionFill         StepAction = "fill"
	ActionSelect       StepAction = "select"
	ActionScroll       StepAction = "scroll"
	ActionWait         StepAction = "wait"
	ActionExtract      StepAction = "extract"
	ActionDismissBanner StepAction = "dismiss_banner"
)

// StepImportance governs whether Workflow Optimizer / Replayer treat a
// step's failure as fatal to the overall run.
type StepImportance string

const (
	ImportanceCritical  StepImportance = "critical"
	ImportanceImportant StepImportance = "important"
	ImportanceOptional  StepImportance = "optional"
)

// WorkflowStep is one recorded action in a Workflow. URL may contain
// "{{var}}" placeholders substituted at replay time.
type WorkflowStep struct {
	StepNumber    int            `json:"step_number"`
	Action        StepAction     `json:"action"`
	URL           string         `json:"url,omitempty"`
	Selector      string         `json:"selector,omitempty"`
	Value         string         `json:"value,omitempty"`
	Annotation    string         `json:"annotation,omitempty"`
	Importance    StepImportance `json:"importance"`
	Duration      time.Duration  `json:"duration"`
	Tier          string         `json:"tier,omitempty"`
	Success       bool           `json:"success"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
}

// Workflow is a tenant-owned, soft-deletable record-and-replay script.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Domain      string         `json:"domain"`
	Tags        []string       `json:"tags,omitempty"`
	TenantID    string         `json:"tenant_id"`
	Steps       []WorkflowStep `json:"steps"`
	UsageCount  int64          `json:"usage_count"`
	SuccessRate float64        `json:"success_rate"`
	Version     int            `json:"version"`
	Deleted     bool           `json:"deleted"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RecordStepSuccess folds a replay/record outcome into the workflow's
// usage counters using the exponential moving average from spec.md §4.6
// (alpha = 0.2).
func (w *Workflow) RecordStepSuccess(success bool, at time.Time) {
	const alpha = 0.2
	w.UsageCount++
	observed := 0.0
	if success {
		observed = 1.0
	}
	if w.UsageCount == 1 {
		w.SuccessRate = observed
	} else {
		w.SuccessRate = w.SuccessRate + alpha*(observed-w.SuccessRate)
	}
	w.UpdatedAt = at
}

// StepResult is the per-step outcome the Replayer produces for one executed
// WorkflowStep.
type StepResult struct {
	StepNumber int           `json:"step_number"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
	Tier       string        `json:"tier,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ReplayResult is the final outcome of replaying a Workflow.
type ReplayResult struct {
	WorkflowID     string        `json:"workflow_id"`
	ExecutedAt     time.Time     `json:"executed_at"`
	Results        []StepResult  `json:"results"`
	OverallSuccess bool          `json:"overall_success"`
	TotalDuration  time.Duration `json:"total_duration"`
}

// Recording is the Recorder's in-progress, exclusively-owned session state.
type RecordingStatus string

const (
	RecordingInProgress RecordingStatus = "recording"
	RecordingSaved      RecordingStatus = "saved"
	RecordingDiscarded  RecordingStatus = "discarded"
)

type Recording struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain"`
	TenantID  string          `json:"tenant_id"`
	StartedAt time.Time       `json:"started_at"`
	Steps     []WorkflowStep  `json:"steps"`
	Status    RecordingStatus `json:"status"`
}
