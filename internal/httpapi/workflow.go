package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/go-chi/chi/v5"
)

type recordStartRequest struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// handleRecordStart backs POST /v1/workflows/record/start.
func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	var req recordStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "malformed request body")
		return
	}

	id := s.Recorder.Start(TenantID(r.Context()), req.Domain, req.Name)
	writeJSON(w, http.StatusOK, map[string]string{"recordingId": id})
}

type recordStopRequest struct {
	Save bool `json:"save"`
}

// handleRecordStop backs POST /v1/workflows/record/{id}/stop.
func (s *Server) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	var req recordStopRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	wf, err := s.Recorder.Stop(chi.URLParam(r, "id"), req.Save)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "ValidationFailed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

type recordAnnotateRequest struct {
	StepNumber int                   `json:"stepNumber"`
	Annotation string                `json:"annotation"`
	Importance models.StepImportance `json:"importance"`
}

// handleRecordAnnotate backs POST /v1/workflows/record/{id}/annotate.
func (s *Server) handleRecordAnnotate(w http.ResponseWriter, r *http.Request) {
	var req recordAnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "malformed request body")
		return
	}

	if err := s.Recorder.AnnotateStep(chi.URLParam(r, "id"), req.StepNumber, req.Annotation, req.Importance); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "ValidationFailed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type workflowReplayRequest struct {
	Session models.Session `json:"session,omitempty"`
	Vars    map[string]any `json:"vars,omitempty"`
}

// handleWorkflowReplay backs POST /v1/workflows/{id}/replay.
func (s *Server) handleWorkflowReplay(w http.ResponseWriter, r *http.Request) {
	var req workflowReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidUrl", "malformed request body")
		return
	}

	tenant := TenantID(r.Context())
	wf, ok := s.Workflows.Get(chi.URLParam(r, "id"))
	if !ok || wf.TenantID != tenant || wf.Deleted {
		writeError(w, http.StatusNotFound, "InvalidUrl", "workflow not found")
		return
	}

	result, err := s.Replayer.Replay(r.Context(), tenant, wf, req.Session, req.Vars)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWorkflowList backs GET /v1/workflows.
func (s *Server) handleWorkflowList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Workflows.List(TenantID(r.Context())))
}

// handleWorkflowGet backs GET /v1/workflows/{id}.
func (s *Server) handleWorkflowGet(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.Workflows.Get(chi.URLParam(r, "id"))
	if !ok || wf.TenantID != TenantID(r.Context()) || wf.Deleted {
		writeError(w, http.StatusNotFound, "InvalidUrl", "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// handleWorkflowDelete backs DELETE /v1/workflows/{id}.
func (s *Server) handleWorkflowDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wf, ok := s.Workflows.Get(id)
	if !ok || wf.TenantID != TenantID(r.Context()) {
		writeError(w, http.StatusNotFound, "InvalidUrl", "workflow not found")
		return
	}
	if err := s.Workflows.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
