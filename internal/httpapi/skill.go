package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fetchweave/fetchsvc/internal/models"
)

type skillMatchRequest struct {
	Page                models.PageContext `json:"page"`
	TopK                int                `json:"topK,omitempty"`
	SimilarityThreshold float64            `json:"similarityThreshold,omitempty"`
}

// handleSkillMatch backs POST /v1/skills/match: scores every stored
// SkillTemplate against the caller's PageContext and returns the top
// candidates the Skill Generalizer would replay in place of a fresh
// recording (spec.md §4.7's request-time template matching).
func (s *Server) handleSkillMatch(w http.ResponseWriter, r *http.Request) {
	var req skillMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "malformed request body")
		return
	}

	matches, err := s.Generalizer.MatchTemplates(r.Context(), req.Page, req.TopK, req.SimilarityThreshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
