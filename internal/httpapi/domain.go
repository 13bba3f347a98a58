package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleDomainIntelligence backs GET /v1/domains/{domain}/intelligence.
func (s *Server) handleDomainIntelligence(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if domain == "" {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "domain path segment is required")
		return
	}

	intel, err := s.Patterns.DomainIntelligence(r.Context(), domain)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intel)
}

type discoverFuzzRequest struct {
	Domain        string `json:"domain"`
	LearnPatterns bool   `json:"learnPatterns"`
}

// handleDiscoverFuzz backs POST /v1/discover/fuzz. spec.md §6 documents a
// richer options object (path wordlists, concurrency, depth) than the
// Discovery Orchestrator exposes. Only domain is acted on: learnPatterns is
// decoded but never read, and any other option is ignored.
func (s *Server) handleDiscoverFuzz(w http.ResponseWriter, r *http.Request) {
	var req discoverFuzzRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "domain is required")
		return
	}

	merged, err := s.Discovery.Discover(r.Context(), TenantID(r.Context()), req.Domain)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"domain":   merged.Domain,
		"patterns": merged.Patterns,
	})
}
