// Package parsers holds one file per Discovery spec-format: OpenAPI,
// GraphQL introspection, RFC 8288 Link discovery, RAML, API Blueprint,
// WADL. Each implements discovery.Parser and emits the common ParsedSpec/
// APIPattern shape from spec.md §4.4 so the Orchestrator can merge them
// uniformly regardless of source format.
//
// No pack repo has a non-test call site for any of these format libraries
// (kin-openapi is go.mod-grounded via kubernaut only); API shapes here
// follow each library's own documented usage rather than an in-pack
// example, same as internal/contentmap's gojq grounding.
package parsers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// commonOpenAPILocations are the well-known paths probed for a spec
// document, per spec.md §4.4.
var commonOpenAPILocations = []string{
	"/openapi.json",
	"/swagger.json",
	"/openapi.yaml",
	"/.well-known/openapi",
	"/v1/openapi.json",
	"/api/openapi.json",
}

// OpenAPIParser probes common OpenAPI document locations and compiles
// every operation into a candidate APIPattern.
type OpenAPIParser struct {
	Client *http.Client
}

func NewOpenAPIParser(client *http.Client) *OpenAPIParser {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &OpenAPIParser{Client: client}
}

func (p *OpenAPIParser) Source() models.DiscoverySource { return models.SourceOpenAPI }

func (p *OpenAPIParser) Probe(ctx context.Context, domain string) (models.DiscoveryResult, error) {
	result := models.DiscoveryResult{Confidence: models.SourcePriors[models.SourceOpenAPI]}

	for _, loc := range commonOpenAPILocations {
		url := "https://" + domain + loc
		result.ProbedLocations = append(result.ProbedLocations, url)

		body, ok := fetch(ctx, p.Client, url)
		if !ok {
			continue
		}

		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(body)
		if err != nil || doc == nil || doc.Paths == nil {
			continue
		}

		spec := &models.ParsedSpec{Version: "openapi", BaseURL: "https://" + domain}
		if doc.Info != nil {
			spec.Title = doc.Info.Title
			spec.Version = doc.Info.Version
		}
		if servers := doc.Servers; len(servers) > 0 && servers[0].URL != "" {
			spec.BaseURL = servers[0].URL
		}

		for path, item := range doc.Paths.Map() {
			for method, op := range item.Operations() {
				spec.Endpoints = append(spec.Endpoints, buildEndpoint(method, path, op))
			}
		}

		result.Found = true
		result.Spec = spec
		result.Patterns = compilePatterns(domain, spec)
		return result, nil
	}

	return result, nil
}

func buildEndpoint(method, path string, op *openapi3.Operation) models.EndpointSpec {
	ep := models.EndpointSpec{Method: strings.ToUpper(method), Path: path}
	for _, param := range op.Parameters {
		if param.Value == nil {
			continue
		}
		switch param.Value.In {
		case "path":
			ep.PathParams = append(ep.PathParams, param.Value.Name)
		case "query":
			ep.QueryParams = append(ep.QueryParams, param.Value.Name)
		}
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		for ct := range op.RequestBody.Value.Content {
			ep.RequestContentType = ct
			break
		}
	}
	if resp := op.Responses.Value("200"); resp != nil && resp.Value != nil {
		for ct := range resp.Value.Content {
			ep.ResponseContentType = ct
			break
		}
	}
	return ep
}

// compilePatterns turns a ParsedSpec's endpoints into candidate
// APIPatterns with high initial confidence, per spec.md §3's
// spec-discovered pattern lifecycle.
func compilePatterns(domain string, spec *models.ParsedSpec) []models.APIPattern {
	now := time.Now()
	patterns := make([]models.APIPattern, 0, len(spec.Endpoints))
	for _, ep := range spec.Endpoints {
		pattern := pathToURLPattern(ep.Path)
		patterns = append(patterns, models.APIPattern{
			ID:               uuid.New().String(),
			TemplateType:     models.TemplateRestResource,
			URLPatterns:      []string{pattern},
			EndpointTemplate: ep.Path,
			Method:           ep.Method,
			ResponseFormat:   models.FormatJSON,
			Metrics: models.PatternMetrics{
				Confidence:    models.SourcePriors[models.SourceOpenAPI],
				SourceDomains: []string{domain},
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return patterns
}

// pathToURLPattern turns an OpenAPI-style "{param}" path template into an
// anchored regex matching a concrete request path.
func pathToURLPattern(path string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '{' {
			end := strings.IndexByte(path[i:], '}')
			if end == -1 {
				b.WriteString(regexpQuoteByte(c))
				continue
			}
			b.WriteString(`[^/]+`)
			i += end
			continue
		}
		b.WriteString(regexpQuoteByte(c))
	}
	b.WriteString("$")
	return b.String()
}

func regexpQuoteByte(c byte) string {
	switch c {
	case '.', '+', '*', '?', '(', ')', '[', ']', '^', '$', '|', '\\':
		return "\\" + string(c)
	default:
		return string(c)
	}
}

// fetch does a short-timeout GET and returns the body, swallowing
// transport errors and non-2xx statuses as "not found" rather than error —
// a missing spec document at one probed location is the expected case.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, false
	}
	return body, true
}
