package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fetchweave/fetchsvc/internal/domainutil"
	"github.com/fetchweave/fetchsvc/internal/models"
)

// browseOptions mirrors spec.md §6's POST /v1/browse options object.
type browseOptions struct {
	ContentType        string           `json:"contentType,omitempty"`
	MaxChars           int              `json:"maxChars,omitempty"`
	ScrollToLoad       bool             `json:"scrollToLoad,omitempty"`
	MaxLatencyMs       int64            `json:"maxLatencyMs,omitempty"`
	MaxCostTier        models.Tier      `json:"maxCostTier,omitempty"`
	Verify             string           `json:"verify,omitempty"` // preset id
	IncludeDecisionTrace bool           `json:"includeDecisionTrace,omitempty"`
	IncludeNetworkRequests bool         `json:"includeNetworkRequests,omitempty"`
	ForceRenderTier    models.Tier      `json:"forceRenderTier,omitempty"`
	Checks             []models.Check  `json:"checks,omitempty"`
}

type browseRequest struct {
	URL     string         `json:"url"`
	Options browseOptions  `json:"options,omitempty"`
	Session models.Session `json:"session,omitempty"`
}

// handleFetch backs both POST /v1/browse and POST /v1/fetch: spec.md §6
// calls them "same shape, semantically identical".
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req browseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "malformed request body")
		return
	}

	result, err := s.fetchOne(r.Context(), TenantID(r.Context()), req)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) fetchOne(ctx context.Context, tenant string, req browseRequest) (models.Result, error) {
	constraints := models.RequestConstraints{
		MaxLatencyMs:    req.Options.MaxLatencyMs,
		MaxCostTier:     req.Options.MaxCostTier,
		ContentTypePref: req.Options.ContentType,
	}

	plan, err := s.Planner.Plan(ctx, tenant, req.URL, constraints)
	if err != nil {
		return models.Result{}, err
	}

	canonical, err := domainutil.Canonicalize(req.URL)
	if err != nil {
		return models.Result{}, err
	}

	directive := models.VerificationDirective{PresetID: req.Options.Verify, Checks: req.Options.Checks}

	result, err := s.Executor.Fetch(ctx, tenant, plan, canonical, req.Session, directive)
	if err != nil {
		return models.Result{}, err
	}

	if s.Stats != nil {
		s.Stats.Record(tenant, req.URL, time.Now(), result.DecisionTrace)
	}

	if !req.Options.IncludeDecisionTrace {
		result.DecisionTrace = models.DecisionTrace{}
	}

	return result, nil
}

// handleBatch backs POST /v1/batch: fetches every url independently and
// reports each result plus the wall-clock total.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs    []string       `json:"urls"`
		Options browseOptions  `json:"options,omitempty"`
		Session models.Session `json:"session,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "malformed request body")
		return
	}

	start := time.Now()
	tenant := TenantID(r.Context())

	type batchEntry struct {
		URL    string         `json:"url"`
		Result *models.Result `json:"result,omitempty"`
		Error  string         `json:"error,omitempty"`
	}

	results := make([]batchEntry, 0, len(req.URLs))
	for _, u := range req.URLs {
		res, err := s.fetchOne(r.Context(), tenant, browseRequest{URL: u, Options: req.Options, Session: req.Session})
		entry := batchEntry{URL: u}
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Result = &res
		}
		results = append(results, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":   results,
		"totalTime": time.Since(start),
	})
}
