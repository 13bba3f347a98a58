package main

import (
	"context"

	"github.com/fetchweave/fetchsvc/internal/domainutil"
	"github.com/fetchweave/fetchsvc/internal/executor"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/planner"
)

// fetchPipeline adapts the Planner+Executor pair to workflow.FetchCore: the
// Replayer only ever has a bare URL per step, so each replayed step is
// planned fresh (no caller-supplied constraints or verification directive)
// before the Executor runs it, the same two-call shape
// httpapi.Server.fetchOne uses for a direct /v1/browse request.
type fetchPipeline struct {
	planner  *planner.Planner
	executor *executor.Executor
}

func (f *fetchPipeline) Fetch(ctx context.Context, tenantID, url string, session models.Session) (models.Result, error) {
	plan, err := f.planner.Plan(ctx, tenantID, url, models.RequestConstraints{})
	if err != nil {
		return models.Result{}, err
	}

	canonical, err := domainutil.Canonicalize(url)
	if err != nil {
		return models.Result{}, err
	}

	return f.executor.Fetch(ctx, tenantID, plan, canonical, session, models.VerificationDirective{})
}
