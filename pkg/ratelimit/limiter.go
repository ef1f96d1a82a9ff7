// Package ratelimit implements token-bucket request budgets, in process or
// shared through Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy is a refill rate and bucket size.
type Policy struct {
	RPS   float64
	Burst int
}

// Store holds one bucket per key.
type Store interface {
	// Allow reports whether key may spend cost tokens under policy.
	Allow(ctx context.Context, key string, policy Policy, cost int) (bool, error)
}

// TokenBucket is a thread-safe token bucket.
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket starts full.
func NewTokenBucket(ratePerSec float64, capacity int) *TokenBucket {
	return newTokenBucket(ratePerSec, capacity, time.Now)
}

func newTokenBucket(ratePerSec float64, capacity int, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: ratePerSec,
		lastRefill: now(),
		now:        now,
	}
}

func (tb *TokenBucket) Allow(cost int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens += elapsed * tb.refillRate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	if tb.tokens >= float64(cost) {
		tb.tokens -= float64(cost)
		return true
	}
	return false
}

type entry struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// MemoryStore keeps buckets in process. Idle buckets are dropped by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*entry), now: time.Now}
}

func (s *MemoryStore) Allow(_ context.Context, key string, policy Policy, cost int) (bool, error) {
	s.mu.Lock()
	e, ok := s.buckets[key]
	if !ok {
		rate := policy.RPS
		if rate <= 0 {
			rate = 1
		}
		e = &entry{bucket: newTokenBucket(rate, policy.Burst, s.now)}
		s.buckets[key] = e
	}
	e.lastSeen = s.now()
	s.mu.Unlock()

	return e.bucket.Allow(cost), nil
}

// Sweep removes buckets not used within idle and returns how many were removed.
func (s *MemoryStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	cutoff := s.now().Add(-idle)
	for key, e := range s.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(idle)
		}
	}
}
