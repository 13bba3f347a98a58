package renderer

import (
	"context"

	"github.com/fetchweave/fetchsvc/internal/models"
)

// PlaywrightRenderer is an interface-satisfying stub: a real headless
// browser driver is out of core scope (spec.md §1's non-goals), but the
// Planner/Executor must still be able to name the tier and the registry
// must have something to return for it.
type PlaywrightRenderer struct{}

func NewPlaywrightRenderer() *PlaywrightRenderer { return &PlaywrightRenderer{} }

func (p *PlaywrightRenderer) Tier() models.Tier { return models.TierPlaywright }

func (p *PlaywrightRenderer) Render(ctx context.Context, url string, session models.Session) (models.RenderOutput, error) {
	return models.RenderOutput{}, ErrRendererUnavailable
}

// FakeRenderer is a deterministic test double for any tier, used by
// executor tests that need a playwright (or any tier's) result
// without driving a real browser.
type FakeRenderer struct {
	TierName models.Tier
	Output   models.RenderOutput
	Err      error
}

func (f *FakeRenderer) Tier() models.Tier { return f.TierName }

func (f *FakeRenderer) Render(ctx context.Context, url string, session models.Session) (models.RenderOutput, error) {
	if err := ctx.Err(); err != nil {
		return models.RenderOutput{}, err
	}
	return f.Output, f.Err
}
