package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fetchweave/fetchsvc/internal/config"
	"github.com/fetchweave/fetchsvc/internal/discovery"
	"github.com/fetchweave/fetchsvc/internal/discovery/parsers"
	"github.com/fetchweave/fetchsvc/internal/events"
	"github.com/fetchweave/fetchsvc/internal/executor"
	"github.com/fetchweave/fetchsvc/internal/httpapi"
	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/fetchweave/fetchsvc/internal/optimizer"
	"github.com/fetchweave/fetchsvc/internal/patternstore"
	"github.com/fetchweave/fetchsvc/internal/planner"
	"github.com/fetchweave/fetchsvc/internal/predictor"
	"github.com/fetchweave/fetchsvc/internal/renderer"
	"github.com/fetchweave/fetchsvc/internal/skill"
	"github.com/fetchweave/fetchsvc/internal/stats"
	"github.com/fetchweave/fetchsvc/internal/storage"
	"github.com/fetchweave/fetchsvc/internal/verifier"
	"github.com/fetchweave/fetchsvc/internal/workflow"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := genkit.Init(
		ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.LLM.ApiKey}),
		genkit.WithDefaultModel("googleai/"+cfg.LLM.LLMModelFast),
	)

	httpClient := &http.Client{Timeout: cfg.Tiers.OverallTimeout}

	patterns := patternstore.New(patternstore.Config{
		Alpha:                 cfg.Patterns.ConfidenceAlpha,
		Beta:                  cfg.Patterns.ConfidenceBeta,
		EligibleMinConfidence: cfg.Patterns.EligibleMinConfidence,
		EligibleMinSuccesses:  cfg.Patterns.EligibleMinSuccesses,
		EligibleMaxAge:        cfg.Patterns.EligibleMaxAge,
		StaleGCMaxAge:         cfg.Patterns.StaleGCMaxAge,
		StaleGCMaxConfidence:  cfg.Patterns.StaleGCMaxConfidence,
	})
	selectors := patternstore.NewSelectorStore()

	cache := discovery.NewCache(cfg.Discovery.CacheTTL, cfg.Discovery.CooldownSchedule)
	discoveryParsers := []discovery.Parser{
		parsers.NewOpenAPIParser(httpClient),
		parsers.NewGraphQLParser(httpClient),
		parsers.NewBlueprintParser(httpClient),
		parsers.NewRAMLParser(httpClient),
		parsers.NewWADLParser(httpClient),
		parsers.NewLinkParser(httpClient),
	}
	orchestrator := discovery.NewOrchestrator(discoveryParsers, cache, patterns, cfg.Discovery.RateLimitInterval, cfg.Discovery.RateLimitBurst)

	pred := predictor.New(predictor.Config{
		BufferCap:             cfg.Predictor.BufferSize,
		MinChangesForPeriod:   cfg.Predictor.MinChangesForPeriod,
		PeriodicCVThreshold:   cfg.Predictor.PeriodicCVThreshold,
		MinChangesForCalendar: cfg.Predictor.MinChangesForCalendar,
	})

	verifierSvc := verifier.New(verifier.DefaultPresets())

	renderFlow := renderer.DefineRenderFlow(g, cfg.LLM.LLMModelFast)
	registry := renderer.NewRegistry(
		renderer.NewIntelligenceRenderer(httpClient, renderFlow),
		renderer.NewLightweightRenderer(httpClient),
		renderer.NewPlaywrightRenderer(),
	)

	plan := planner.New(planner.DefaultConfig(), patterns, selectors, cache)

	hub := events.NewHub()
	go hub.Run()
	pred.SetPublisher(hub)

	exec := executor.New(executor.Config{
		OverallTimeout: cfg.Tiers.OverallTimeout,
		TierTimeouts: map[models.Tier]time.Duration{
			models.TierIntelligence: cfg.Tiers.IntelligenceTimeout,
			models.TierLightweight:  cfg.Tiers.LightweightTimeout,
			models.TierPlaywright:   cfg.Tiers.PlaywrightTimeout,
		},
	}, registry, patterns, selectors, verifierSvc, pred, httpClient)
	exec.SetPublisher(hub)

	workflows := storage.NewWorkflowStore()
	recorder := workflow.NewRecorder(workflows)
	replayer := workflow.NewReplayer(&fetchPipeline{planner: plan, executor: exec}, workflows)

	skillStore := skill.NewStore()
	embedder := skill.NewGenkitEmbedder(g, cfg.LLM.EmbedderModel)
	generalizer := skill.NewGeneralizer(skillStore, embedder)
	replayer.SetSkillGeneralizer(generalizer)

	optimizations := optimizer.NewStore()
	replayer.SetOptimizationStore(optimizations)

	statsCollector := stats.NewCollector(500)

	srv := &httpapi.Server{
		Planner:            plan,
		Executor:           exec,
		Patterns:           patterns,
		Discovery:          orchestrator,
		Predictor:          pred,
		Workflows:          workflows,
		Recorder:           recorder,
		Replayer:           replayer,
		Stats:              statsCollector,
		Generalizer:        generalizer,
		Hub:                hub,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("Starting HTTP API on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
