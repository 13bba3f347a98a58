package models

// FormField is one field of an extracted HTML form.
type FormField struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // text, password, hidden, etc.
	Sensitive bool   `json:"sensitive"`
}

// ExtractedForm is a security/workflow-relevant form lifted out of rendered
// HTML, keyed by a hash of action+method so repeated observations collapse
// to one record. Grounded on the teacher's HTMLForm (internal/models/site_context.go);
// kept for the Renderer/Verifier's form-aware extraction and for Workflow
// Recorder's "fill" step detection.
type ExtractedForm struct {
	FormID        string      `json:"form_id"` // hash of action+method
	Action        string      `json:"action"`
	Method        string      `json:"method"`
	HasCSRFToken  bool        `json:"has_csrf_token"`
	CSRFTokenName string      `json:"csrf_token_name,omitempty"`
	Fields        []FormField `json:"fields,omitempty"`
	FirstSeenUnix int64       `json:"first_seen_unix"`
}

// ResourceMapping is the CRUD operation table detected for one resource
// path ("/api/users/{id}" → {"GET":"read", "POST":"create", …}), feeding
// the Workflow Optimizer's data-sufficiency comparisons and the API
// Analyzer's REST-compliance scoring.
type ResourceMapping struct {
	ResourcePath   string            `json:"resource_path"`
	Operations     map[string]string `json:"operations"`
	Identifier     string            `json:"identifier,omitempty"`
	RelatedPaths   []string          `json:"related_paths,omitempty"`
	DetectedAtUnix int64             `json:"detected_at_unix"`
}

// RecentFetch is a lightweight record of one past fetch against a domain,
// used to compute rolling success rate and recent-activity windows.
type RecentFetch struct {
	ID           string `json:"id"`
	TimestampUnix int64 `json:"timestamp_unix"`
	Method       string `json:"method"`
	Path         string `json:"path"` // normalized pattern, not raw path
	StatusCode   int    `json:"status_code"`
	Tier         Tier   `json:"tier,omitempty"`
	Success      bool   `json:"success"`
	DurationMs   int64  `json:"duration_ms,omitempty"`
}
