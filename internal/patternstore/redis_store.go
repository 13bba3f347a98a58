package patternstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fetchweave/fetchsvc/internal/models"
	"github.com/go-redis/redis/v8"
)

// RedisStore is the optional persistent backing for the Pattern Store,
// grounded on gomind's pkg/discovery/redis.go: a thin client wrapper that
// serializes records as JSON under a namespaced key, falls back to an
// in-memory cache when Redis is unreachable, and logs rather than fails
// the caller on a backing-store hiccup (spec.md §7 "Side-channels... never
// fail the fetch; their errors are logged").
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration

	fallback *Store // in-memory Store used when Redis calls error out
}

func NewRedisStore(addr, password string, db int, namespace string, ttl time.Duration, fallback *Store) *RedisStore {
	if namespace == "" {
		namespace = "fetchsvc:patterns"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisStore{client: client, namespace: namespace, ttl: ttl, fallback: fallback}
}

func (r *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", r.namespace, id)
}

// Persist writes a pattern to Redis, logging and continuing on failure —
// pattern rows are still live in the in-memory Store even if the durable
// copy fails to write.
func (r *RedisStore) Persist(ctx context.Context, p models.APIPattern) {
	blob, err := json.Marshal(p)
	if err != nil {
		log.Printf("patternstore: redis marshal failed for %s: %v", p.ID, err)
		return
	}
	if err := r.client.Set(ctx, r.key(p.ID), blob, r.ttl).Err(); err != nil {
		log.Printf("patternstore: redis persist failed for %s: %v", p.ID, err)
	}
}

// Load reads a pattern back from Redis, falling back to the in-memory
// Store's own copy on any Redis error (connection refused, key expired,
// etc).
func (r *RedisStore) Load(ctx context.Context, id string) (models.APIPattern, bool) {
	blob, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if r.fallback != nil {
			r.fallback.mu.RLock()
			entry, ok := r.fallback.patterns[id]
			r.fallback.mu.RUnlock()
			if ok {
				entry.mu.Lock()
				defer entry.mu.Unlock()
				return entry.pattern, true
			}
		}
		return models.APIPattern{}, false
	}

	var p models.APIPattern
	if err := json.Unmarshal(blob, &p); err != nil {
		log.Printf("patternstore: redis unmarshal failed for %s: %v", id, err)
		return models.APIPattern{}, false
	}
	return p, true
}

// Ping reports whether the Redis backend is currently reachable.
func (r *RedisStore) Ping(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}
