package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"canopy/internal/middleware"
	"canopy/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is a read-through JSON cache over Redis. A Store with a nil client
// is valid and always calls through to the loader.
type Store struct {
	client    *redis.Client
	namespace string
}

// NewStore returns a Store whose keys are prefixed with namespace.
func NewStore(client *redis.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

// Enabled reports whether the store is backed by Redis.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Store) key(key string) string {
	return fmt.Sprintf("%s:%s", s.namespace, key)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), b, ttl).Err()
}

// Aside serves key from Redis, or calls load to populate dest and stores the
// result for ttl. Cache failures degrade to a plain load; load errors are
// returned unchanged and nothing is cached. A zero ttl disables caching.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func(context.Context) error) error {
	if !s.Enabled() || ttl <= 0 {
		return load(ctx)
	}

	ctx, span := observability.TraceRedisOperation(ctx, "aside")
	defer span.End()

	found, err := s.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues(s.namespace, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", s.key(key), "error", err.Error())
	case found:
		observability.CacheLookups.WithLabelValues(s.namespace, "hit").Inc()
		return nil
	default:
		observability.CacheLookups.WithLabelValues(s.namespace, "miss").Inc()
	}

	if err := load(ctx); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", s.key(key), "error", err.Error())
	}
	return nil
}

// Invalidate removes key. It is a no-op without Redis.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if s.Enabled() {
		s.client.Del(ctx, s.key(key))
	}
}
