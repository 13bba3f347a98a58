package workflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/optimizer"
	"github.com/fetchweave/fetchsvc/internal/skill"
)

// FetchCore is the subset of the Planner+Executor pipeline the Replayer
// drives per step: plan and fetch one URL under one tenant/session,
// returning the same Result the public API would.
type FetchCore interface {
	Fetch(ctx context.Context, tenantID, url string, session models.Session) (models.Result, error)
}

// WorkflowUpdater is the subset of persistence the Replayer writes the
// updated usage/success-rate counters through after a replay.
type WorkflowUpdater interface {
	Update(w models.Workflow) error
}

// SkillGeneralizer is the subset of *skill.Generalizer the Replayer feeds
// completed Workflows through once they clear the abstraction bar
// (spec.md §4.7).
type SkillGeneralizer interface {
	Abstract(ctx context.Context, wf models.Workflow, pageType string) (models.Skill, error)
}

// OptimizationStore is the subset of *optimizer.Store the Replayer proposes
// detected data-sufficiency shortcuts through (spec.md §4.8).
type OptimizationStore interface {
	Propose(opt models.Optimization) models.Optimization
}

// Replayer executes a recorded Workflow's steps in order, substituting
// "{{var}}" placeholders in each step's URL from the caller-supplied
// variable bindings.
type Replayer struct {
	core    FetchCore
	updater WorkflowUpdater

	generalizer   SkillGeneralizer
	optimizations OptimizationStore
}

func NewReplayer(core FetchCore, updater WorkflowUpdater) *Replayer {
	return &Replayer{core: core, updater: updater}
}

// SetSkillGeneralizer wires the Skill Generalizer every successful replay
// checks a just-updated Workflow against. Optional: a nil generalizer (the
// default) makes this a no-op.
func (r *Replayer) SetSkillGeneralizer(g SkillGeneralizer) {
	r.generalizer = g
}

// SetOptimizationStore wires the Workflow Optimizer every replay proposes
// newly detected data-sufficiency shortcuts through. Optional: a nil store
// (the default) makes this a no-op.
func (r *Replayer) SetOptimizationStore(store OptimizationStore) {
	r.optimizations = store
}

// Replay runs every step of wf against vars. A missing variable (a
// programming error on the caller's part, not a step failure) aborts the
// replay with an error, and a failed step marked critical ends it early;
// other step failures are recorded in the result and replay continues so
// later steps still run and contribute to the overall trace, matching
// spec.md §4.6's "records per-step {success, duration, tier, error}".
func (r *Replayer) Replay(ctx context.Context, tenantID string, wf models.Workflow, session models.Session, vars map[string]any) (models.ReplayResult, error) {
	result := models.ReplayResult{
		WorkflowID:     wf.ID,
		ExecutedAt:     time.Now(),
		OverallSuccess: true,
	}
	start := time.Now()

	for _, step := range wf.Steps {
		stepStart := time.Now()
		sr := models.StepResult{StepNumber: step.StepNumber}

		if step.Action != models.ActionNavigate && step.Action != models.ActionExtract {
			sr.Success = true
			sr.Duration = time.Since(stepStart)
			result.Results = append(result.Results, sr)
			continue
		}

		url, err := substituteVars(step.URL, vars)
		if err != nil {
			return result, fmt.Errorf("workflow: step %d: %w", step.StepNumber, err)
		}

		res, err := r.core.Fetch(ctx, tenantID, url, session)
		sr.Duration = time.Since(stepStart)
		if err != nil {
			sr.Error = err.Error()
			sr.Success = false
		} else {
			sr.Success = res.Verification.Passed
			sr.Tier = string(res.Metadata.Tier)
		}

		if !sr.Success && step.Importance == models.ImportanceCritical {
			result.OverallSuccess = false
			result.Results = append(result.Results, sr)
			break
		}
		if !sr.Success {
			result.OverallSuccess = false
		}
		result.Results = append(result.Results, sr)
	}

	result.TotalDuration = time.Since(start)
	wf.RecordStepSuccess(result.OverallSuccess, result.ExecutedAt)
	if r.updater != nil {
		if err := r.updater.Update(wf); err != nil {
			return result, fmt.Errorf("workflow: update usage counters: %w", err)
		}
	}

	r.abstractIfEligible(ctx, wf)
	r.proposeOptimizations(wf)

	return result, nil
}

// abstractIfEligible hands wf to the wired Skill Generalizer once its
// updated usage counters clear EligibleForAbstraction, using the
// Workflow's own name as the page-type hint: the Recorder has no page
// classifier of its own, so the caller-chosen recording name is the best
// available stand-in (spec.md §4.7 names pageType but not its source).
func (r *Replayer) abstractIfEligible(ctx context.Context, wf models.Workflow) {
	if r.generalizer == nil || !skill.EligibleForAbstraction(wf) {
		return
	}
	if _, err := r.generalizer.Abstract(ctx, wf, wf.Name); err != nil {
		log.Printf("workflow: abstract skill for workflow %s: %v", wf.ID, err)
	}
}

// proposeOptimizations scans wf's just-replayed steps for data-sufficiency
// shortcuts (spec.md §4.8). DetectAPIShortcuts additionally needs the raw
// per-step network log, which WorkflowStep does not retain, so only the
// data-sufficiency detector runs here; see DESIGN.md.
func (r *Replayer) proposeOptimizations(wf models.Workflow) {
	if r.optimizations == nil {
		return
	}
	for _, opt := range optimizer.DetectDataSufficiency(wf) {
		r.optimizations.Propose(opt)
	}
}

// substituteVars replaces every "{{name}}" token in tmpl with its bound
// value from vars (typed string|number|boolean per spec.md §4.6); any token
// with no matching variable is an error.
func substituteVars(tmpl string, vars map[string]any) (string, error) {
	out := tmpl
	for {
		start := strings.Index(out, "{{")
		if start == -1 {
			return out, nil
		}
		end := strings.Index(out[start:], "}}")
		if end == -1 {
			return out, fmt.Errorf("unterminated variable token in %q", tmpl)
		}
		name := strings.TrimSpace(out[start+2 : start+end])
		v, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("missing variable %q", name)
		}
		out = out[:start] + renderVar(v) + out[start+end+2:]
	}
}

func renderVar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
