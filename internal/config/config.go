package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every operational knob the fetch core reads at startup.
// Loading follows the godotenv + env-var pattern: a .env file is optional,
// environment variables always win, and every field has a default, so no
// variable is required.
type Config struct {
	LLM        LLMConfig
	Tiers      TierConfig
	Patterns   PatternStoreConfig
	Discovery  DiscoveryConfig
	Predictor  PredictorConfig
	HTTP       HTTPConfig
	Redis      RedisConfig
	TenantMode string // "single" or "multi"; governs whether tenant id is required on requests
}

// LLMConfig configures the genkit-backed Embedder and the `intelligence`
// Renderer tier, both of which call out to a hosted model.
type LLMConfig struct {
	Provider      string // "gemini" or "generic"
	Model         string
	ApiKey        string
	LLMModelFast  string // fast model for the intelligence tier's single-shot extraction
	LLMModelSmart string // smart model, reserved for richer analysis
	BaseURL       string
	Format        string // "openai", "ollama", "raw"
	EmbedderModel string
}

// TierConfig holds the per-tier wall-clock budgets from spec.md §5.
type TierConfig struct {
	IntelligenceTimeout time.Duration
	LightweightTimeout  time.Duration
	PlaywrightTimeout   time.Duration
	OverallTimeout      time.Duration
	RendererQueueDepth  int // loaded from RENDERER_QUEUE_DEPTH but read nowhere; no Renderer tier has a queue in front of it
}

// PatternStoreConfig holds the confidence-update and eligibility constants
// from spec.md §4.3, plus the stale-pattern GC policy left as an Open
// Question in spec.md §9 — disabled (zero) unless explicitly configured.
type PatternStoreConfig struct {
	ConfidenceAlpha       float64 // success smoothing factor, ≈0.1
	ConfidenceBeta        float64 // failure decay factor, ≈0.2
	EligibleMinConfidence float64 // ≈0.7
	EligibleMinSuccesses  int     // ≈3
	EligibleMaxAge        time.Duration // ≈14 days
	StaleGCMaxAge         time.Duration // 0 disables GC
	StaleGCMaxConfidence  float64
}

// DiscoveryConfig holds the TTL/cooldown/rate-limit schedule from spec.md §4.4/§5.
type DiscoveryConfig struct {
	CacheTTL          time.Duration
	CooldownSchedule  []time.Duration // 1m, 5m, 30m, 2h, capped at the last entry
	RateLimitInterval time.Duration   // 1 probe per N
	RateLimitBurst    int
}

// PredictorConfig holds the Change-Predictor's tunables from spec.md §4.5.
type PredictorConfig struct {
	BufferSize           int // per (domain, url-pattern) circular buffer capacity
	MinChangesForPeriod  int // ≥4
	PeriodicCVThreshold  float64
	MinChangesForCalendar int // ≥3
}

// HTTPConfig configures the chi-routed edge from spec.md §6.
type HTTPConfig struct {
	Addr                string
	RateLimitPerMinute  int
	RateLimitBurst      int
	WebhookSigningSecret string
}

// RedisConfig holds connection settings for the optional Redis-backed
// Pattern Store (patternstore.RedisStore). The Discovery Cache has no Redis
// backend, and cmd does not construct a RedisStore, so the in-memory
// implementations are used whatever Addr holds.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load reads .env (if present) and environment variables into a Config.
// Every variable is optional: LLM_MODEL_FAST and LLM_MODEL_SMART default to
// gemini-2.5-flash and gemini-2.5-pro, and Load never returns an error.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	llmModelFast := os.Getenv("LLM_MODEL_FAST")
	llmModelSmart := os.Getenv("LLM_MODEL_SMART")
	if llmModelFast == "" {
		llmModelFast = "gemini-2.5-flash"
	}
	if llmModelSmart == "" {
		llmModelSmart = "gemini-2.5-pro"
	}

	cfg := &Config{
		LLM: LLMConfig{
			Provider:      getEnv("LLM_PROVIDER", "gemini"),
			Model:         os.Getenv("LLM_MODEL"),
			ApiKey:        os.Getenv("API_KEY"),
			LLMModelFast:  llmModelFast,
			LLMModelSmart: llmModelSmart,
			BaseURL:       os.Getenv("LLM_BASE_URL"),
			Format:        getEnv("LLM_FORMAT", "openai"),
			EmbedderModel: getEnv("LLM_EMBEDDER_MODEL", "text-embedding-004"),
		},
		Tiers: TierConfig{
			IntelligenceTimeout: getEnvDuration("TIER_INTELLIGENCE_TIMEOUT", 5*time.Second),
			LightweightTimeout:  getEnvDuration("TIER_LIGHTWEIGHT_TIMEOUT", 10*time.Second),
			PlaywrightTimeout:   getEnvDuration("TIER_PLAYWRIGHT_TIMEOUT", 30*time.Second),
			OverallTimeout:      getEnvDuration("FETCH_TIMEOUT", 60*time.Second),
			RendererQueueDepth:  getEnvInt("RENDERER_QUEUE_DEPTH", 32),
		},
		Patterns: PatternStoreConfig{
			ConfidenceAlpha:       getEnvFloat("PATTERN_CONFIDENCE_ALPHA", 0.1),
			ConfidenceBeta:        getEnvFloat("PATTERN_CONFIDENCE_BETA", 0.2),
			EligibleMinConfidence: getEnvFloat("PATTERN_ELIGIBLE_MIN_CONFIDENCE", 0.7),
			EligibleMinSuccesses:  getEnvInt("PATTERN_ELIGIBLE_MIN_SUCCESSES", 3),
			EligibleMaxAge:        getEnvDuration("PATTERN_ELIGIBLE_MAX_AGE", 14*24*time.Hour),
			StaleGCMaxAge:         getEnvDuration("PATTERN_STALE_GC_MAX_AGE", 0),
			StaleGCMaxConfidence:  getEnvFloat("PATTERN_STALE_GC_MAX_CONFIDENCE", 0.3),
		},
		Discovery: DiscoveryConfig{
			CacheTTL: getEnvDuration("DISCOVERY_CACHE_TTL", time.Hour),
			CooldownSchedule: []time.Duration{
				time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour,
			},
			RateLimitInterval: getEnvDuration("DISCOVERY_RATE_LIMIT_INTERVAL", 3*time.Second),
			RateLimitBurst:    getEnvInt("DISCOVERY_RATE_LIMIT_BURST", 5),
		},
		Predictor: PredictorConfig{
			BufferSize:            getEnvInt("PREDICTOR_BUFFER_SIZE", 64),
			MinChangesForPeriod:   getEnvInt("PREDICTOR_MIN_CHANGES_PERIOD", 4),
			PeriodicCVThreshold:   getEnvFloat("PREDICTOR_CV_THRESHOLD", 0.25),
			MinChangesForCalendar: getEnvInt("PREDICTOR_MIN_CHANGES_CALENDAR", 3),
		},
		HTTP: HTTPConfig{
			Addr:                 getEnv("HTTP_ADDR", ":8080"),
			RateLimitPerMinute:   getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 600),
			RateLimitBurst:       getEnvInt("HTTP_RATE_LIMIT_BURST", 20),
			WebhookSigningSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		TenantMode: getEnv("TENANT_MODE", "single"),
	}

	return cfg, nil
}
