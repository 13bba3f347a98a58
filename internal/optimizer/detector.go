// Package optimizer implements the Workflow Optimizer from spec.md §4.8:
// detecting that a later step's API call (or already-extracted data)
// already carries what earlier steps existed only to produce, and
// proposing a shortcut that bypasses them.
//
// Grounded on the teacher's internal/utils/crud_mapper.go for the
// "classify a captured request by its resource path" idiom — adapted here
// from CRUD-operation classification into counting the path/query
// parameters a candidate shortcut call would need to stand alone.
package optimizer

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/fetchweave/fetchsvc/internal/apianalyzer"
	"github.com/fetchweave/fetchsvc/internal/models"
)

const (
	fieldCoverageThreshold = 0.8
	minParametersNeeded    = 2
	maxFieldDepth          = 3
)

// DetectAPIShortcuts scans a completed Workflow's steps from first to last,
// proposing one Optimization per step whose API-like captured requests
// cover at least 80% of the field names extracted by every step before it,
// provided the shortcut call itself needs at least two parameters (path or
// query) to stand in for the bypassed steps. stepNetworkLogs[i] holds the
// network requests captured during wf.Steps[i].
func DetectAPIShortcuts(wf models.Workflow, stepNetworkLogs [][]models.NetworkRequest) []models.Optimization {
	var out []models.Optimization
	earlier := map[string]bool{}

	for i, step := range wf.Steps {
		if i < len(stepNetworkLogs) {
			for _, req := range stepNetworkLogs[i] {
				cls := apianalyzer.Classify(req)
				if !cls.IsAPI || !isDataFetch(req.Method) || req.ResponseStatus < 200 || req.ResponseStatus >= 300 {
					continue
				}
				if !isJSON(req.ContentType) {
					continue
				}
				fields := responseFieldNames(req.ResponseBody)
				if len(fields) == 0 || len(earlier) == 0 {
					continue
				}
				coverage := fieldCoverage(fields, earlier)
				params := parameterCount(req.URL)
				if coverage >= fieldCoverageThreshold && params >= minParametersNeeded {
					bypassed := make([]int, 0, i)
					var bypassedDuration int64
					for _, s := range wf.Steps[:i] {
						bypassed = append(bypassed, s.StepNumber)
						bypassedDuration += int64(s.Duration)
					}
					out = append(out, models.Optimization{
						WorkflowID:         wf.ID,
						Strategy:           models.OptimizationAPIShortcut,
						ShortcutStepNumber: step.StepNumber,
						BypassedSteps:      bypassed,
						EstimatedSpeedup:   estimatedSpeedup(bypassedDuration, int64(step.Duration)),
						Confidence:         coverage,
					})
				}
			}
		}
		addFields(earlier, flattenKeys(step.ExtractedData, 0))
	}
	return out
}

// DetectDataSufficiency proposes an Optimization whenever a later step's
// already-extracted data alone covers at least 80% of the field names
// extracted by every step before it — no network capture required, unlike
// DetectAPIShortcuts.
func DetectDataSufficiency(wf models.Workflow) []models.Optimization {
	var out []models.Optimization
	earlier := map[string]bool{}

	for _, step := range wf.Steps {
		if len(step.ExtractedData) > 0 && len(earlier) > 0 {
			fields := flattenKeys(step.ExtractedData, 0)
			coverage := fieldCoverage(fields, earlier)
			if coverage >= fieldCoverageThreshold {
				bypassed := make([]int, 0, step.StepNumber-1)
				var bypassedDuration int64
				for _, s := range wf.Steps {
					if s.StepNumber >= step.StepNumber {
						break
					}
					bypassed = append(bypassed, s.StepNumber)
					bypassedDuration += int64(s.Duration)
				}
				if len(bypassed) > 0 {
					out = append(out, models.Optimization{
						WorkflowID:         wf.ID,
						Strategy:           models.OptimizationDataSufficiency,
						ShortcutStepNumber: step.StepNumber,
						BypassedSteps:      bypassed,
						EstimatedSpeedup:   estimatedSpeedup(bypassedDuration, int64(step.Duration)),
						Confidence:         coverage,
					})
				}
			}
		}
		addFields(earlier, flattenKeys(step.ExtractedData, 0))
	}
	return out
}

func isDataFetch(method string) bool {
	m := strings.ToUpper(method)
	return m == http.MethodGet || m == "" || m == http.MethodPost
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// responseFieldNames decodes a JSON response body and flattens its field
// names to maxFieldDepth, the same depth bound spec.md §4.8 names.
func responseFieldNames(body []byte) map[string]bool {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil
	}
	fields := map[string]bool{}
	collectFieldNames(value, 0, fields)
	return fields
}

func collectFieldNames(v any, depth int, out map[string]bool) {
	if depth > maxFieldDepth {
		return
	}
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			out[k] = true
			collectFieldNames(val, depth+1, out)
		}
	case []any:
		for _, item := range t {
			collectFieldNames(item, depth, out)
		}
	}
}

// flattenKeys does the same field-name flattening as collectFieldNames but
// over an already-extracted map[string]any, so extracted-data comparisons
// use the identical coverage definition as API-response comparisons.
func flattenKeys(data map[string]any, depth int) map[string]bool {
	out := map[string]bool{}
	for k, v := range data {
		out[k] = true
		if depth < maxFieldDepth {
			if nested, ok := v.(map[string]any); ok {
				for nk := range flattenKeys(nested, depth+1) {
					out[nk] = true
				}
			}
		}
	}
	return out
}

func addFields(dst, src map[string]bool) {
	for k := range src {
		dst[k] = true
	}
}

// fieldCoverage is |fields ∩ earlier| / |earlier| — how much of what
// earlier steps extracted this candidate's fields already contain.
func fieldCoverage(fields, earlier map[string]bool) float64 {
	if len(earlier) == 0 {
		return 0
	}
	matched := 0
	for k := range earlier {
		if fields[k] {
			matched++
		}
	}
	return float64(matched) / float64(len(earlier))
}

// parameterCount counts a request URL's query parameters plus its
// parameter-like path segments (letters, digits and hyphens, with at least
// one digit), a proxy for how many earlier steps' values it would need
// supplied to stand alone as a shortcut call.
func parameterCount(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	count := len(u.Query())
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if looksLikeParameter(seg) {
			count++
		}
	}
	return count
}

func looksLikeParameter(segment string) bool {
	if segment == "" {
		return false
	}
	hasDigit := false
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			hasDigit = true
		} else if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-') {
			return false
		}
	}
	return hasDigit
}

// estimatedSpeedup is (sum of bypassed-step durations) / shortcut-call
// duration, per spec.md §4.8. Since the captured network request carries
// no duration of its own, the shortcut call's cost is approximated by the
// duration of the step whose response it reuses — a judgment call, not a
// spec-given measurement, recorded as such.
func estimatedSpeedup(bypassedDurationNs, shortcutDurationNs int64) float64 {
	if shortcutDurationNs <= 0 {
		return 0
	}
	return float64(bypassedDurationNs) / float64(shortcutDurationNs)
}
