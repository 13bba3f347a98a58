package executor

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/domainutil"
	"github.com/fetchweave/fetchsvc/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z]+\}`)

// compileObservedPattern turns one captured NetworkRequest into a candidate
// API Pattern, per spec.md §3 "Lifecycle": observed patterns start at the
// "observed" source prior (low relative to a spec-backed pattern's 0.95+)
// and earn confidence only through verified reuse. ContentMapping is
// intentionally left empty here — there is no in-scope JSON-field guesser
// to populate title/body paths from an unlabeled response shape, so an
// observed pattern is eligible for upsert/reuse bookkeeping but not yet for
// the content extraction a caller's pattern-invoke would need; it becomes
// fully usable once an operator (or a future discovery source) backfills
// ContentMapping.
func compileObservedPattern(req models.NetworkRequest, domain string) models.APIPattern {
	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Host == "" {
		return models.APIPattern{}
	}

	genericPath := domainutil.NormalizePattern(req.URL)
	const sentinel = "\x00SEG\x00"
	tokenized := placeholderRe.ReplaceAllString(genericPath, sentinel)
	escaped := regexp.QuoteMeta(tokenized)
	regexPath := strings.ReplaceAll(escaped, regexp.QuoteMeta(sentinel), `[^/]+`)
	urlRegex := "^" + regexp.QuoteMeta(parsed.Scheme+"://"+parsed.Host) + regexPath + "$"

	responseFormat := models.FormatText
	if strings.Contains(strings.ToLower(req.ContentType), "json") {
		responseFormat = models.FormatJSON
	} else if strings.Contains(strings.ToLower(req.ContentType), "xml") {
		responseFormat = models.FormatXML
	}

	now := time.Now()
	return models.APIPattern{
		TemplateType:     models.TemplateRestResource,
		URLPatterns:      []string{urlRegex},
		EndpointTemplate: req.URL,
		Method:           req.Method,
		ResponseFormat:   responseFormat,
		Validation:       models.ValidationRules{MinContentLength: 1},
		Metrics: models.PatternMetrics{
			Confidence:    models.SourcePriors[models.SourceObserved],
			SourceDomains: []string{domain},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
