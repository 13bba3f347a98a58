// Package verifier evaluates a VerificationDirective's Checks against
// extracted content, per spec.md §4.9. Grounded on the teacher's
// internal/utils/heuristics.go QuickHeuristicAnalysis shape — a sequence
// of cheap, ordered checks each returning a verdict with a reason string —
// generalized from a security-finding triage heuristic into the content
// assertion vocabulary (fieldExists/fieldMatches/minLength/excludesText).
package verifier

import (
	"regexp"
	"strings"
	"sync"

	"github.com/fetchweave/fetchsvc/internal/contentmap"
	"github.com/fetchweave/fetchsvc/internal/models"
)

// Verifier evaluates VerificationDirectives against rendered content. It is
// a long-lived, dependency-injected service (spec.md §9 replaces the
// source's global verifier singleton with this) and is safe for concurrent
// use across fetches.
type Verifier struct {
	walker  *contentmap.Walker
	presets map[string]models.Preset

	regexMu  sync.Mutex
	compiled map[string]*regexp.Regexp
}

func New(presets []models.Preset) *Verifier {
	v := &Verifier{
		walker:   contentmap.NewWalker(),
		presets:  make(map[string]models.Preset, len(presets)),
		compiled: make(map[string]*regexp.Regexp),
	}
	for _, p := range presets {
		v.presets[p.ID] = p
	}
	return v
}

// Resolve turns a directive (possibly just a preset id) into the concrete
// Check list to evaluate.
func (v *Verifier) Resolve(d models.VerificationDirective) []models.Check {
	if d.PresetID != "" {
		if preset, ok := v.presets[d.PresetID]; ok {
			return preset.Checks
		}
	}
	return d.Checks
}

// Verify evaluates every Check against the structured content (normally
// the parsed JSON body for a pattern-invoke, or a map view of extracted
// fields for a rendered page) and the rendered text, producing the
// pass/fail/confidence report from spec.md §4.9.
func (v *Verifier) Verify(directive models.VerificationDirective, content any, text string) models.VerificationOutcome {
	checks := v.Resolve(directive)
	if len(checks) == 0 {
		return models.VerificationOutcome{Passed: true, Confidence: 1.0}
	}

	outcome := models.VerificationOutcome{Passed: true, Confidence: 1.0}
	passedCount := 0

	for _, check := range checks {
		ok, checkedFields, missingFields, errMsg := v.evaluate(check.Assertion, content, text)
		outcome.CheckedFields = append(outcome.CheckedFields, checkedFields...)
		outcome.MissingFields = append(outcome.MissingFields, missingFields...)

		if ok {
			passedCount++
			continue
		}

		outcome.Errors = append(outcome.Errors, errMsg)
		switch check.Severity {
		case models.SeverityWarning:
			// warning never fails the fetch
		case models.SeverityError:
			if !check.Retryable {
				outcome.Passed = false
			}
		case models.SeverityCritical:
			outcome.Passed = false
		}
	}

	outcome.Confidence = float64(passedCount) / float64(len(checks))
	return outcome
}

// CriticalNonRetryableFailure reports whether any critical, non-retryable
// check in the directive fails against the given content — the Executor's
// signal to stop escalating and surface a terminal Fail immediately rather
// than try the next tier (spec.md §4.2: "On non-retryable critical →
// Fail").
func (v *Verifier) CriticalNonRetryableFailure(directive models.VerificationDirective, content any, text string) bool {
	for _, check := range v.Resolve(directive) {
		if check.Severity != models.SeverityCritical || check.Retryable {
			continue
		}
		if ok, _, _, _ := v.evaluate(check.Assertion, content, text); !ok {
			return true
		}
	}
	return false
}

func (v *Verifier) evaluate(a models.Assertion, content any, text string) (ok bool, checked, missing []string, errMsg string) {
	switch a.Kind {
	case models.AssertFieldExists:
		return v.checkFieldsExist(a.Fields, content)
	case models.AssertFieldMatches:
		return v.checkFieldMatches(a.Field, a.Regex, content)
	case models.AssertMinLength:
		return checkMinLength(a.MinLength, text)
	case models.AssertExcludesText:
		return checkExcludesText(a.ExcludedText, text)
	default:
		return false, nil, nil, "unknown assertion kind: " + string(a.Kind)
	}
}

func (v *Verifier) checkFieldsExist(fields []string, content any) (bool, []string, []string, string) {
	var missing []string
	for _, f := range fields {
		val, err := v.walker.Walk(f, content)
		if err != nil || val == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return false, fields, missing, "missing required fields: " + strings.Join(missing, ", ")
	}
	return true, fields, nil, ""
}

func (v *Verifier) checkFieldMatches(field, pattern string, content any) (bool, []string, []string, string) {
	val, err := v.walker.Walk(field, content)
	if err != nil || val == nil {
		return false, nil, []string{field}, "field not found: " + field
	}
	s, ok := val.(string)
	if !ok {
		return false, []string{field}, nil, "field is not a string: " + field
	}
	re, err := v.compile(pattern)
	if err != nil {
		return false, []string{field}, nil, "invalid regex for field " + field + ": " + err.Error()
	}
	if !re.MatchString(s) {
		return false, []string{field}, nil, "field " + field + " does not match expected pattern"
	}
	return true, []string{field}, nil, ""
}

func (v *Verifier) compile(pattern string) (*regexp.Regexp, error) {
	v.regexMu.Lock()
	defer v.regexMu.Unlock()
	if re, ok := v.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	v.compiled[pattern] = re
	return re, nil
}

func checkMinLength(min int, text string) (bool, []string, []string, string) {
	if len(text) < min {
		return false, nil, nil, "content shorter than required minimum length"
	}
	return true, nil, nil, ""
}

func checkExcludesText(excluded, text string) (bool, []string, []string, string) {
	if excluded == "" {
		return true, nil, nil, ""
	}
	if strings.Contains(text, excluded) {
		return false, nil, nil, "content contains excluded text"
	}
	return true, nil, nil, ""
}
