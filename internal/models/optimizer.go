package models

import "time"

// OptimizationStrategy distinguishes the two detection strategies from
// spec.md §4.8.
type OptimizationStrategy string

const (
	OptimizationAPIShortcut     OptimizationStrategy = "api_shortcut"
	OptimizationDataSufficiency OptimizationStrategy = "data_sufficiency"
)

// OptimizationMetrics tracks how an already-proposed Optimization has
// performed in practice, the input to its auto-promotion decision.
type OptimizationMetrics struct {
	TimesUsed            int           `json:"times_used"`
	SuccessCount         int           `json:"success_count"`
	FailureCount         int           `json:"failure_count"`
	AvgOptimizedDuration time.Duration `json:"avg_optimized_duration"`
	AvgOriginalDuration  time.Duration `json:"avg_original_duration"`
}

// SuccessRate returns 0 until the optimization has been used at least once.
func (m OptimizationMetrics) SuccessRate() float64 {
	if m.TimesUsed == 0 {
		return 0
	}
	return float64(m.SuccessCount) / float64(m.TimesUsed)
}

// RecordOutcome folds one replay's use of this optimization into its
// running averages.
func (m *OptimizationMetrics) RecordOutcome(success bool, optimizedDuration, originalDuration time.Duration) {
	prevUsed := m.TimesUsed
	m.TimesUsed++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	m.AvgOptimizedDuration = runningAvg(m.AvgOptimizedDuration, prevUsed, optimizedDuration)
	m.AvgOriginalDuration = runningAvg(m.AvgOriginalDuration, prevUsed, originalDuration)
}

func runningAvg(prevAvg time.Duration, prevCount int, next time.Duration) time.Duration {
	if prevCount == 0 {
		return next
	}
	total := prevAvg*time.Duration(prevCount) + next
	return total / time.Duration(prevCount+1)
}

// Optimization is a proposed (or promoted) shortcut through a Workflow,
// bypassing one or more leading steps in favor of a single later
// step/request that already carries equivalent data (spec.md §4.8).
type Optimization struct {
	ID                 string               `json:"id"`
	WorkflowID         string               `json:"workflow_id"`
	Strategy           OptimizationStrategy `json:"strategy"`
	ShortcutStepNumber int                  `json:"shortcut_step_number"`
	BypassedSteps      []int                `json:"bypassed_steps"`
	EstimatedSpeedup   float64              `json:"estimated_speedup"`
	Confidence         float64              `json:"confidence"`
	Promoted           bool                 `json:"promoted"`
	Metrics            OptimizationMetrics  `json:"metrics"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// EligibleForPromotion reports spec.md §4.8's auto-promote rule:
// timesUsed >= 5 and successRate >= 0.9.
func (o Optimization) EligibleForPromotion() bool {
	return o.Metrics.TimesUsed >= 5 && o.Metrics.SuccessRate() >= 0.9
}
