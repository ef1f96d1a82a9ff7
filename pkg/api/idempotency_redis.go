package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "eventdesk:idempotency:"

// RedisIdempotencyStore shares cached responses and in-flight reservations between
// server instances. Redis errors degrade to a cache miss and a granted reservation.
type RedisIdempotencyStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	lease   time.Duration
	timeout time.Duration
}

// NewRedisIdempotencyStore keeps responses for ttl. A reservation expires after
// lease if its holder dies before releasing it.
func NewRedisIdempotencyStore(client redis.UniversalClient, ttl, lease time.Duration) *RedisIdempotencyStore {
	if lease <= 0 {
		lease = time.Minute
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl, lease: lease, timeout: 2 * time.Second}
}

func (s *RedisIdempotencyStore) Check(ctx context.Context, key string) (*cachedResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.client.Get(ctx, idempotencyPrefix+"resp:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.client.SetNX(ctx, idempotencyPrefix+"lock:"+key, 1, s.lease).Result()
	if err != nil {
		return true
	}
	return ok
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_ = s.client.Del(ctx, idempotencyPrefix+"lock:"+key).Err()
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, statusCode int, headers http.Header, body []byte) {
	raw, err := json.Marshal(cachedResponse{StatusCode: statusCode, Headers: headers, Body: body, CachedAt: time.Now()})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_ = s.client.Set(ctx, idempotencyPrefix+"resp:"+key, raw, s.ttl).Err()
}
