package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/go-chi/chi/v5"
)

// handlePredictionsList backs GET /v1/predictions.
func (s *Server) handlePredictionsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Predictor.All())
}

// handlePredictionsForDomain backs GET /v1/predictions/{domain}: every
// tracked url pattern for a domain.
func (s *Server) handlePredictionsForDomain(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	out := make([]models.ChangePredictionPattern, 0)
	for _, p := range s.Predictor.All() {
		if p.Domain == domain {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseUrgency(level string) (models.Urgency, bool) {
	switch strings.ToLower(level) {
	case "low":
		return models.UrgencyLow, true
	case "normal":
		return models.UrgencyNormal, true
	case "high":
		return models.UrgencyHigh, true
	case "critical":
		return models.UrgencyCritical, true
	default:
		return 0, false
	}
}

// handlePredictionsByUrgency backs GET /v1/predictions/urgency/{level},
// returning every tracked pattern at or above the named urgency level.
func (s *Server) handlePredictionsByUrgency(w http.ResponseWriter, r *http.Request) {
	level, ok := parseUrgency(chi.URLParam(r, "level"))
	if !ok {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "unrecognized urgency level")
		return
	}

	out := make([]models.ChangePredictionPattern, 0)
	for _, p := range s.Predictor.All() {
		if p.Urgency >= level {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type predictionsObserveRequest struct {
	URLPattern  string `json:"urlPattern"`
	ContentHash string `json:"contentHash"`
}

// handlePredictionsObserve backs POST /v1/predictions/{domain}/observe:
// records a fresh content-hash observation for the (domain, urlPattern)
// pair and returns the updated pattern.
func (s *Server) handlePredictionsObserve(w http.ResponseWriter, r *http.Request) {
	var req predictionsObserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URLPattern == "" {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "urlPattern is required")
		return
	}

	domain := chi.URLParam(r, "domain")
	pattern := s.Predictor.ObserveContent(domain, req.URLPattern, req.ContentHash, time.Now())
	writeJSON(w, http.StatusOK, pattern)
}
