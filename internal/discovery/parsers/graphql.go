package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/contentmap"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/google/uuid"
)

var commonGraphQLPaths = []string{"/graphql", "/api/graphql", "/v1/graphql", "/query"}

// introspectionQuery is the standard GraphQL introspection query, trimmed
// to just what's needed to enumerate query/mutation field names.
const introspectionQuery = `{"query":"query{__schema{queryType{name fields{name}}mutationType{name fields{name}}}}"}`

// GraphQLParser POSTs the standard introspection query to common GraphQL
// endpoint paths, lists every query and mutation field it finds in the
// result's ParsedSpec, and compiles a single candidate pattern for the
// endpoint; no per-field patterns are emitted.
type GraphQLParser struct {
	Client  *http.Client
	Walker  *contentmap.Walker
}

func NewGraphQLParser(client *http.Client) *GraphQLParser {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &GraphQLParser{Client: client, Walker: contentmap.NewWalker()}
}

func (p *GraphQLParser) Source() models.DiscoverySource { return models.SourceGraphQL }

func (p *GraphQLParser) Probe(ctx context.Context, domain string) (models.DiscoveryResult, error) {
	result := models.DiscoveryResult{Confidence: models.SourcePriors[models.SourceGraphQL]}

	for _, path := range commonGraphQLPaths {
		url := "https://" + domain + path
		result.ProbedLocations = append(result.ProbedLocations, url)

		body, ok := postJSON(ctx, p.Client, url, []byte(introspectionQuery))
		if !ok {
			continue
		}

		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			continue
		}

		queryFields, _ := p.Walker.WalkAll(ctx, ".data.__schema.queryType.fields[].name", parsed)
		mutationFields, _ := p.Walker.WalkAll(ctx, ".data.__schema.mutationType.fields[].name", parsed)
		if len(queryFields) == 0 && len(mutationFields) == 0 {
			continue
		}

		spec := &models.ParsedSpec{Title: "graphql", BaseURL: url}
		for _, f := range queryFields {
			spec.Endpoints = append(spec.Endpoints, models.EndpointSpec{Method: "POST", Path: asString(f)})
		}
		for _, f := range mutationFields {
			spec.Endpoints = append(spec.Endpoints, models.EndpointSpec{Method: "POST", Path: asString(f)})
		}

		result.Found = true
		result.Spec = spec
		result.Patterns = []models.APIPattern{graphQLPattern(domain, url, spec)}
		return result, nil
	}

	return result, nil
}

// graphQLPattern compiles a single pattern for the discovered endpoint —
// GraphQL is invoked by field selection in the POST body, not by distinct
// URL paths, so one pattern covers the whole endpoint.
func graphQLPattern(domain, endpoint string, spec *models.ParsedSpec) models.APIPattern {
	now := time.Now()
	return models.APIPattern{
		ID:               uuid.New().String(),
		TemplateType:     models.TemplateGraphQL,
		URLPatterns:      []string{"^" + quoteURL(endpoint) + "$"},
		EndpointTemplate: endpoint,
		Method:           "POST",
		Headers:          map[string]string{"Content-Type": "application/json"},
		ResponseFormat:   models.FormatJSON,
		Metrics: models.PatternMetrics{
			Confidence:    models.SourcePriors[models.SourceGraphQL],
			SourceDomains: []string{domain},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func quoteURL(s string) string {
	r := strings.NewReplacer(".", `\.`, "?", `\?`, "+", `\+`)
	return r.Replace(s)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte) ([]byte, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
