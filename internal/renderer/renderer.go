// Package renderer implements the Renderer capability: the abstract
// intelligence/lightweight/playwright tiers the Executor escalates through.
// Grounded on the teacher's internal/driven/analyzer.go for the HTML→LLM
// content-preparation shape (prepareContentForLLM) and on
// internal/llm/analyst_flow.go for the genkit.DefineFlow/GenerateData flow
// pattern, generalized from security-observation extraction into page
// rendering.
package renderer

import (
	"context"
	"errors"

	"github.com/fetchweave/fetchsvc/internal/models"
)

// ErrRendererUnavailable is returned by tiers that cannot actually run in
// this deployment (playwright requires an out-of-process browser driver,
// explicitly out of core scope).
var ErrRendererUnavailable = errors.New("renderer: tier unavailable in this deployment")

// Renderer is satisfied by every tier implementation. Render must respect
// ctx cancellation and propagate it to any in-flight HTTP calls.
type Renderer interface {
	Tier() models.Tier
	Render(ctx context.Context, url string, session models.Session) (models.RenderOutput, error)
}

// Registry looks up a Renderer by tier, used by the Executor to avoid
// hard-wiring tier implementations.
type Registry struct {
	byTier map[models.Tier]Renderer
}

func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{byTier: make(map[models.Tier]Renderer, len(renderers))}
	for _, rd := range renderers {
		r.byTier[rd.Tier()] = rd
	}
	return r
}

func (r *Registry) For(tier models.Tier) (Renderer, bool) {
	rd, ok := r.byTier[tier]
	return rd, ok
}
