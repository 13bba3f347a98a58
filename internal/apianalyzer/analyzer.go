// Package apianalyzer scores captured network requests for API-likeness,
// degrades the resulting confidence bucket by capturing tier, and reports
// which buckets are eligible, per spec.md §4.3. Compiling a capture into
// an API Pattern is done by the executor package. Grounded on the teacher's request-classification shape in
// internal/utils/crud_mapper.go (method → CRUD operation, static-asset
// filtering) generalized from a CRUD classifier into a confidence scorer.
package apianalyzer

import (
	"mime"
	"regexp"
	"strings"

	"github.com/fetchweave/fetchsvc/internal/models"
)

// Confidence is the three-bucket classification from spec.md §4.3.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var apiPathRe = regexp.MustCompile(`/api/|/v\d+/|/graphql|\.json$`)

// Classification is the scored verdict for one captured NetworkRequest.
type Classification struct {
	IsAPI      bool
	Score      int
	Confidence Confidence
}

// Classify scores a captured request using the rubric from spec.md §4.3:
// +3 for 2xx, +2 for JSON content-type, +2 for GET (or +2 for an
// authenticated mutation with a REST-compliant status), +1 for a non-empty
// response body, +1 for a standard auth header. ≥7 is high, 4-6 medium,
// else low.
func Classify(req models.NetworkRequest) Classification {
	isJSON := isJSONContentType(req.ContentType)
	isAPI := isJSON || apiPathRe.MatchString(req.URL)
	if !isAPI {
		return Classification{IsAPI: false, Score: 0, Confidence: ConfidenceLow}
	}

	score := 0
	if req.ResponseStatus >= 200 && req.ResponseStatus < 300 {
		score += 3
	}
	if isJSON {
		score += 2
	}
	method := strings.ToUpper(req.Method)
	if method == "GET" {
		score += 2
	} else if isAuthenticated(req) && isRESTCompliantStatus(method, req.ResponseStatus) {
		score += 2
	}
	if len(req.ResponseBody) > 0 {
		score += 1
	}
	if isAuthenticated(req) {
		score += 1
	}

	conf := ConfidenceLow
	switch {
	case score >= 7:
		conf = ConfidenceHigh
	case score >= 4:
		conf = ConfidenceMedium
	}
	return Classification{IsAPI: true, Score: score, Confidence: conf}
}

// DegradeForTier applies the tier-aware degradation rule from spec.md
// §4.3: a capture from the lightweight tier is demoted one level; under
// the intelligence tier only high survives (demoted to medium), everything
// else is dropped, since lower tiers have incomplete network visibility.
// The bool return is false when the capture should be dropped entirely.
func DegradeForTier(c Confidence, tier models.Tier) (Confidence, bool) {
	switch tier {
	case models.TierPlaywright:
		return c, true
	case models.TierLightweight:
		switch c {
		case ConfidenceHigh:
			return ConfidenceMedium, true
		case ConfidenceMedium:
			return ConfidenceLow, true
		default:
			return ConfidenceLow, true
		}
	case models.TierIntelligence:
		if c == ConfidenceHigh {
			return ConfidenceMedium, true
		}
		return "", false
	default:
		return c, true
	}
}

// Eligible reports whether a classified, tier-degraded capture is eligible
// for bypass use — only "high" qualifies, per spec.md §4.3. The executor
// compiles and stores every capture DegradeForTier keeps, and uses Eligible
// only to pick which of them it reports as discovered.
func Eligible(c Confidence) bool { return c == ConfidenceHigh }

func isJSONContentType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return strings.Contains(mt, "json")
}

func isAuthenticated(req models.NetworkRequest) bool {
	for k := range req.RequestHeaders {
		lower := strings.ToLower(k)
		if lower == "authorization" || lower == "cookie" || lower == "x-api-key" {
			return true
		}
	}
	return false
}

func isRESTCompliantStatus(method string, status int) bool {
	switch method {
	case "POST":
		return status == 201 || status == 200
	case "PUT", "PATCH":
		return status == 200 || status == 204
	case "DELETE":
		return status == 200 || status == 204
	default:
		return false
	}
}
