package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/predictor"
	"github.com/fetchweave/fetchsvc/internal/storage"
	"github.com/fetchweave/fetchsvc/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type fakeFetchCore struct {
	result models.Result
	err    error
}

func (f *fakeFetchCore) Fetch(ctx context.Context, tenantID, url string, session models.Session) (models.Result, error) {
	if f.err != nil {
		return models.Result{}, f.err
	}
	return f.result, nil
}

func newTestServer() *Server {
	wfStore := storage.NewWorkflowStore()
	return &Server{
		Workflows: wfStore,
		Recorder:  workflow.NewRecorder(wfStore),
		Replayer:  workflow.NewReplayer(&fakeFetchCore{result: models.Result{Verification: models.VerificationOutcome{Passed: true}}}, wfStore),
		Predictor: predictor.New(predictor.DefaultConfig()),
	}
}

func authedRequest(method, path string, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer live_tenant1_abc")
	ctx := context.WithValue(req.Context(), ctxTenantID, "tenant1")
	ctx = context.WithValue(ctx, ctxEnvironment, envLive)
	return req.WithContext(ctx)
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	h := authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workflows", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_AcceptsValidTokenAndSetsTenant(t *testing.T) {
	var gotTenant string
	h := authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = TenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authedRequest(http.MethodGet, "/v1/workflows", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant1", gotTenant)
}

func TestRateLimitMiddleware_BlocksAfterLimit(t *testing.T) {
	limiter := newRateLimiter(1, time.Minute)
	h := rateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/v1/workflows", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/v1/workflows", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.NotEmpty(t, rec2.Header().Get("Retry-After"))
}

func TestWorkflowLifecycle_RecordStopListGetDelete(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.handleRecordStart(rec, authedRequest(http.MethodPost, "/v1/workflows/record/start", `{"domain":"example.com","name":"checkout"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var started struct {
		RecordingID string `json:"recordingId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.RecordingID)

	stopReq := authedRequest(http.MethodPost, "/v1/workflows/record/x/stop", `{"save":true}`)
	stopReq = withURLParam(stopReq, "id", started.RecordingID)
	stopRec := httptest.NewRecorder()
	s.handleRecordStop(stopRec, stopReq)
	require.Equal(t, http.StatusOK, stopRec.Code)

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(stopRec.Body.Bytes(), &wf))
	require.NotEmpty(t, wf.ID)

	listRec := httptest.NewRecorder()
	s.handleWorkflowList(listRec, authedRequest(http.MethodGet, "/v1/workflows", ""))
	require.Equal(t, http.StatusOK, listRec.Code)
	var listed []models.Workflow
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	getReq := withURLParam(authedRequest(http.MethodGet, "/v1/workflows/x", ""), "id", wf.ID)
	getRec := httptest.NewRecorder()
	s.handleWorkflowGet(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)

	delReq := withURLParam(authedRequest(http.MethodDelete, "/v1/workflows/x", ""), "id", wf.ID)
	delRec := httptest.NewRecorder()
	s.handleWorkflowDelete(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	listRec2 := httptest.NewRecorder()
	s.handleWorkflowList(listRec2, authedRequest(http.MethodGet, "/v1/workflows", ""))
	var listed2 []models.Workflow
	require.NoError(t, json.Unmarshal(listRec2.Body.Bytes(), &listed2))
	assert.Empty(t, listed2)
}

func TestWorkflowReplay_RunsAgainstSavedWorkflow(t *testing.T) {
	s := newTestServer()
	id, err := s.Workflows.Save(models.Workflow{TenantID: "tenant1", Domain: "example.com", Name: "empty"})
	require.NoError(t, err)

	req := withURLParam(authedRequest(http.MethodPost, "/v1/workflows/x/replay", `{}`), "id", id)
	rec := httptest.NewRecorder()
	s.handleWorkflowReplay(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ReplayResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.OverallSuccess)
}

func TestPredictions_ObserveThenListByUrgency(t *testing.T) {
	s := newTestServer()

	observeReq := withURLParam(
		authedRequest(http.MethodPost, "/v1/predictions/example.com/observe", `{"urlPattern":"/a","contentHash":"h1"}`),
		"domain", "example.com",
	)
	observeRec := httptest.NewRecorder()
	s.handlePredictionsObserve(observeRec, observeReq)
	require.Equal(t, http.StatusOK, observeRec.Code)

	listRec := httptest.NewRecorder()
	s.handlePredictionsList(listRec, authedRequest(http.MethodGet, "/v1/predictions", ""))
	require.Equal(t, http.StatusOK, listRec.Code)
	var all []models.ChangePredictionPattern
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "example.com", all[0].Domain)

	urgencyReq := withURLParam(authedRequest(http.MethodGet, "/v1/predictions/urgency/low", ""), "level", "low")
	urgencyRec := httptest.NewRecorder()
	s.handlePredictionsByUrgency(urgencyRec, urgencyReq)
	require.Equal(t, http.StatusOK, urgencyRec.Code)
	var byUrgency []models.ChangePredictionPattern
	require.NoError(t, json.Unmarshal(urgencyRec.Body.Bytes(), &byUrgency))
	assert.Len(t, byUrgency, 1)
}
