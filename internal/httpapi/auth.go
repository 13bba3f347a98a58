package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ctxKey int

const (
	ctxTenantID ctxKey = iota
	ctxEnvironment
)

// environment is the token-prefix-encoded deployment mode spec.md §6 names:
// "a bearer token with prefix identifying environment (live vs test)".
type environment string

const (
	envLive environment = "live"
	envTest environment = "test"
)

// TenantID reads the tenant id an authenticated request's bearer token
// resolved to. Empty when TenantMode is "single".
func TenantID(ctx context.Context) string {
	v, _ := ctx.Value(ctxTenantID).(string)
	return v
}

// Environment reports whether the current request authenticated with a
// live or test token.
func Environment(ctx context.Context) string {
	v, _ := ctx.Value(ctxEnvironment).(environment)
	return string(v)
}

// parseToken splits a bearer token of the form "{live|test}_<tenantID>_..."
// into its environment and tenant id. A token with no recognized prefix is
// rejected outright.
func parseToken(token string) (environment, string, bool) {
	parts := strings.SplitN(token, "_", 3)
	if len(parts) < 2 {
		return "", "", false
	}
	switch environment(parts[0]) {
	case envLive, envTest:
		return environment(parts[0]), parts[1], true
	default:
		return "", "", false
	}
}

// authMiddleware requires a bearer token with a recognized live/test
// prefix on every request it guards; absence or malformed tokens get 401
// per spec.md §6/§7 (KindUnauthorized).
func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing or malformed bearer token")
			return
		}

		env, tenant, ok := parseToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "token has no recognized live/test prefix")
			return
		}

		ctx := context.WithValue(r.Context(), ctxTenantID, tenant)
		ctx = context.WithValue(ctx, ctxEnvironment, env)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware enforces limiter against the caller's bearer token,
// setting X-RateLimit-Limit/-Remaining/-Reset on every response and
// rejecting with 429 plus Retry-After once exhausted (spec.md §6/§7).
func rateLimitMiddleware(limiter *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Authorization")
			res := limiter.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter/time.Second)))
				writeError(w, http.StatusTooManyRequests, "RateLimited", "quota exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
