package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "idempotency get")
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "idempotency decode")
	}
	return &rec, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, rec *Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "idempotency encode")
	}
	return errors.Wrap(s.client.Set(ctx, key, raw, ttl).Err(), "idempotency set")
}

// MemoryStore keeps records in process. Used when Redis is not configured;
// records are not shared between replicas.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(DefaultTTL, cleanup)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	rec := v.(Record)
	return &rec, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, rec *Record, ttl time.Duration) error {
	s.cache.Set(key, *rec, ttl)
	return nil
}
