package parsers

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
)

var commonRAMLLocations = []string{"/api.raml", "/spec.raml", "/.well-known/api.raml"}

// resourceLineRe matches a RAML top-level resource line, e.g. "/users:".
var resourceLineRe = regexp.MustCompile(`^(/[a-zA-Z0-9_\-/{}]*):\s*$`)

// methodLineRe matches a RAML method line nested under a resource, e.g. "  get:".
var methodLineRe = regexp.MustCompile(`^\s+(get|post|put|patch|delete):\s*$`)

// RAMLParser does a line-oriented scan of a probed RAML document: RAML's
// YAML-like grammar means resources and methods are identified by
// indentation rather than markup, so a regex-per-line scan (not a single
// monolithic regex) keeps this linear in document size.
type RAMLParser struct {
	Client *http.Client
}

func NewRAMLParser(client *http.Client) *RAMLParser {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &RAMLParser{Client: client}
}

func (p *RAMLParser) Source() models.DiscoverySource { return models.SourceRAML }

func (p *RAMLParser) Probe(ctx context.Context, domain string) (models.DiscoveryResult, error) {
	result := models.DiscoveryResult{Confidence: models.SourcePriors[models.SourceRAML]}

	for _, loc := range commonRAMLLocations {
		url := "https://" + domain + loc
		result.ProbedLocations = append(result.ProbedLocations, url)

		body, ok := fetch(ctx, p.Client, url)
		if !ok || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("#%RAML")) {
			continue
		}

		spec := scanRAML(body)
		if len(spec.Endpoints) == 0 {
			continue
		}
		spec.BaseURL = "https://" + domain
		result.Found = true
		result.Spec = spec
		result.Patterns = compilePatternsFromSource(domain, spec, models.SourceRAML)
		return result, nil
	}
	return result, nil
}

func scanRAML(body []byte) *models.ParsedSpec {
	spec := &models.ParsedSpec{Version: "raml"}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	var currentResource string
	for scanner.Scan() {
		line := scanner.Text()
		if m := resourceLineRe.FindStringSubmatch(line); m != nil {
			currentResource = m[1]
			continue
		}
		if m := methodLineRe.FindStringSubmatch(line); m != nil && currentResource != "" {
			spec.Endpoints = append(spec.Endpoints, models.EndpointSpec{
				Method: strings.ToUpper(m[1]),
				Path:   currentResource,
			})
		}
	}
	return spec
}

// compilePatternsFromSource is the shared endpoint→APIPattern compiler used
// by every non-OpenAPI spec parser (RAML, API Blueprint, WADL): the
// confidence prior differs per source, everything else about the
// conversion is identical.
func compilePatternsFromSource(domain string, spec *models.ParsedSpec, source models.DiscoverySource) []models.APIPattern {
	now := time.Now()
	patterns := make([]models.APIPattern, 0, len(spec.Endpoints))
	for _, ep := range spec.Endpoints {
		patterns = append(patterns, models.APIPattern{
			ID:               newPatternID(),
			TemplateType:     models.TemplateRestResource,
			URLPatterns:      []string{pathToURLPattern(ep.Path)},
			EndpointTemplate: ep.Path,
			Method:           ep.Method,
			ResponseFormat:   models.FormatJSON,
			Metrics: models.PatternMetrics{
				Confidence:    models.SourcePriors[source],
				SourceDomains: []string{domain},
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return patterns
}
