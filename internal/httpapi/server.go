package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/fetchweave/fetchsvc/internal/discovery"
	"github.com/fetchweave/fetchsvc/internal/events"
	"github.com/fetchweave/fetchsvc/internal/executor"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/planner"
	"github.com/fetchweave/fetchsvc/internal/predictor"
	"github.com/fetchweave/fetchsvc/internal/stats"
	"github.com/fetchweave/fetchsvc/internal/storage"
	"github.com/fetchweave/fetchsvc/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// PatternSource is the subset of *patternstore.Store the domain
// intelligence route reads.
type PatternSource interface {
	DomainIntelligence(ctx context.Context, domain string) (models.DomainIntelligence, error)
}

// SkillMatcher is the subset of *skill.Generalizer the edge calls at
// request time to find a stored SkillTemplate for a page.
type SkillMatcher interface {
	MatchTemplates(ctx context.Context, page models.PageContext, topK int, similarityThreshold float64) ([]models.TemplateMatch, error)
}

// Server bundles every core service the HTTP edge fronts. It holds no
// state of its own beyond routing/auth/rate-limit plumbing; every route
// handler delegates to one of these.
type Server struct {
	Planner    *planner.Planner
	Executor   *executor.Executor
	Patterns   PatternSource
	Discovery  *discovery.Orchestrator
	Predictor  *predictor.Predictor
	Workflows  *storage.WorkflowStore
	Recorder   *workflow.Recorder
	Replayer   *workflow.Replayer
	Stats      *stats.Collector
	Generalizer SkillMatcher
	Hub        *events.Hub

	RateLimitPerMinute int
	CORSOrigins        []string
}

// Router builds the chi.Mux the process serves: CORS, request id/recoverer
// middleware (the teacher's own net/http server carried no router, so
// this is wired directly off the jordigilh-kubernaut example's chi.Router
// + go-chi/cors usage, per SPEC_FULL.md's DOMAIN STACK table), then the
// bearer-auth and rate-limit gate, then the named routes from spec.md §6.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	limiter := newRateLimiter(s.rateLimit(), time.Minute)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(rateLimitMiddleware(limiter))

		r.Post("/v1/browse", s.handleFetch)
		r.Post("/v1/fetch", s.handleFetch)
		r.Post("/v1/batch", s.handleBatch)
		r.Get("/v1/domains/{domain}/intelligence", s.handleDomainIntelligence)
		r.Post("/v1/discover/fuzz", s.handleDiscoverFuzz)

		r.Post("/v1/workflows/record/start", s.handleRecordStart)
		r.Post("/v1/workflows/record/{id}/stop", s.handleRecordStop)
		r.Post("/v1/workflows/record/{id}/annotate", s.handleRecordAnnotate)
		r.Post("/v1/workflows/{id}/replay", s.handleWorkflowReplay)
		r.Get("/v1/workflows", s.handleWorkflowList)
		r.Get("/v1/workflows/{id}", s.handleWorkflowGet)
		r.Delete("/v1/workflows/{id}", s.handleWorkflowDelete)

		r.Get("/v1/predictions", s.handlePredictionsList)
		r.Get("/v1/predictions/{domain}", s.handlePredictionsForDomain)
		r.Get("/v1/predictions/urgency/{level}", s.handlePredictionsByUrgency)
		r.Post("/v1/predictions/{domain}/observe", s.handlePredictionsObserve)

		if s.Generalizer != nil {
			r.Post("/v1/skills/match", s.handleSkillMatch)
		}
		if s.Hub != nil {
			r.Get("/v1/events/ws", s.Hub.ServeWS)
		}
	})

	return r
}

func (s *Server) corsOrigins() []string {
	if len(s.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.CORSOrigins
}

func (s *Server) rateLimit() int {
	if s.RateLimitPerMinute <= 0 {
		return 120
	}
	return s.RateLimitPerMinute
}
