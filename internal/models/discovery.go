package models

import "time"

// DiscoverySource names one of the probing/parsing strategies the Discovery
// Orchestrator fans out to.
type DiscoverySource string

const (
	SourceOpenAPI  DiscoverySource = "openapi"
	SourceGraphQL  DiscoverySource = "graphql"
	SourceAsyncAPI DiscoverySource = "asyncapi"
	SourceRAML     DiscoverySource = "raml"
	SourceBlueprint DiscoverySource = "api-blueprint"
	SourceWADL     DiscoverySource = "wadl"
	SourceLinks    DiscoverySource = "links"
	SourceDocsPage DiscoverySource = "docs-page"
	SourceObserved DiscoverySource = "observed"
)

// SourcePriors are the confidence priors from spec.md §4.4, also used as the
// merge-priority ordering (higher first).
var SourcePriors = map[DiscoverySource]float64{
	SourceOpenAPI:   0.95,
	SourceGraphQL:   0.90,
	SourceAsyncAPI:  0.85,
	SourceRAML:      0.80,
	SourceBlueprint: 0.80,
	SourceWADL:      0.80,
	SourceLinks:     0.70,
	SourceDocsPage:  0.60,
	SourceObserved:  0.50,
}

// EndpointSpec is one operation lifted out of a parsed API specification.
type EndpointSpec struct {
	Method             string   `json:"method"`
	Path               string   `json:"path"`
	PathParams         []string `json:"path_params,omitempty"`
	QueryParams        []string `json:"query_params,omitempty"`
	RequestContentType string   `json:"request_content_type,omitempty"`
	ResponseContentType string  `json:"response_content_type,omitempty"`
	ResponseSchema     map[string]any `json:"response_schema,omitempty"`
}

// ParsedSpec is the common parser output contract from spec.md §4.4: every
// spec-format parser (OpenAPI, GraphQL, RAML, API Blueprint, WADL) produces
// this shape, which is then compiled uniformly into APIPatterns.
type ParsedSpec struct {
	Title     string         `json:"title"`
	Version   string         `json:"version"`
	BaseURL   string         `json:"base_url"`
	Endpoints []EndpointSpec `json:"endpoints"`
}

// DiscoveryResult is the per-(source, domain) outcome the Orchestrator
// records and merges, and what's cached with TTL/cooldown.
type DiscoveryResult struct {
	Source          DiscoverySource `json:"source"`
	Domain          string          `json:"domain"`
	Found           bool            `json:"found"`
	Spec            *ParsedSpec     `json:"spec,omitempty"`
	Patterns        []APIPattern    `json:"patterns,omitempty"`
	ProbedLocations []string        `json:"probed_locations,omitempty"`
	Duration        time.Duration   `json:"duration"`
	Error           string          `json:"error,omitempty"`
	Confidence      float64         `json:"confidence"`
	DiscoveryTime   time.Time       `json:"discovery_time"`
}

// LinkRelation is one parsed RFC 8288 Link header token, or the HTML/
// hypermedia-body equivalent (HAL _links, JSON:API, Siren, Collection+JSON,
// Hydra) the Link discovery parser normalizes to this shape.
type LinkRelation struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
}
