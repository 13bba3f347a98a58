package discovery

import (
	"context"

	"github.com/fetchweave/fetchsvc/internal/models"
)

// Parser is one spec-format probe strategy fanned out to by the
// Orchestrator: OpenAPI, GraphQL introspection, RFC 8288 Link discovery,
// RAML, API Blueprint, WADL. Each is independent and never blocks another.
type Parser interface {
	Source() models.DiscoverySource
	// Probe fetches and parses whatever this source format exposes for
	// domain, returning found=false (not an error) when the domain simply
	// doesn't expose this format.
	Probe(ctx context.Context, domain string) (models.DiscoveryResult, error)
}
