package api

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/eventdesk/dashboard/pkg/auth"
)

// cachedResponse stores a previously-seen response for idempotent replay.
type cachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	CachedAt   time.Time
}

// IdempotencyStore caches responses of mutating requests by key. Reserve marks a key
// as in flight and reports false while another request holds it.
type IdempotencyStore interface {
	Check(ctx context.Context, key string) (*cachedResponse, bool)
	Reserve(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
	Set(ctx context.Context, key string, statusCode int, headers http.Header, body []byte)
}

// MemoryIdempotencyStore holds cached responses in process. Use RedisIdempotencyStore
// when several instances serve the same API.
type MemoryIdempotencyStore struct {
	mu       sync.RWMutex
	entries  map[string]*cachedResponse
	inflight map[string]struct{}
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries:  make(map[string]*cachedResponse),
		inflight: make(map[string]struct{}),
		ttl:      ttl,
		now:      time.Now,
	}
}

// RunCleanup drops expired entries every interval until ctx is done.
func (s *MemoryIdempotencyStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *MemoryIdempotencyStore) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.entries {
		if now.Sub(v.CachedAt) > s.ttl {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryIdempotencyStore) Check(_ context.Context, key string) (*cachedResponse, bool) {
	s.mu.RLock()
	cached, exists := s.entries[key]
	s.mu.RUnlock()

	if exists && s.now().Sub(cached.CachedAt) < s.ttl {
		return cached, true
	}
	return nil, false
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key string, statusCode int, headers http.Header, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &cachedResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		CachedAt:   s.now(),
	}
}

// responseCapture wraps http.ResponseWriter to capture the response.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.statusCode = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the first successful response of a mutating request
// carrying an Idempotency-Key. Keys are scoped to the caller, method and path, so a
// retried create or reorder is not applied twice. A retry that arrives while the first
// attempt is still running is handed to busy.
func IdempotencyMiddleware(store IdempotencyStore, busy http.HandlerFunc) func(http.Handler) http.Handler {
	if busy == nil {
		busy = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || (r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete) {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Idempotency-Key")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller := "anonymous"
			if p, err := auth.GetPrincipal(r.Context()); err == nil {
				caller = p.ID
			}
			key := caller + " " + r.Method + " " + r.URL.Path + " " + header
			ctx := r.Context()

			if cached, ok := store.Check(ctx, key); ok {
				replay(w, cached)
				return
			}
			if !store.Reserve(ctx, key) {
				busy(w, r)
				return
			}
			defer store.Release(context.WithoutCancel(ctx), key)
			// The first attempt may have finished between Check and Reserve.
			if cached, ok := store.Check(ctx, key); ok {
				replay(w, cached)
				return
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.statusCode >= 200 && capture.statusCode < 300 {
				store.Set(context.WithoutCancel(ctx), key, capture.statusCode, w.Header().Clone(), capture.body.Bytes())
			}
		})
	}
}

func replay(w http.ResponseWriter, cached *cachedResponse) {
	for k, vals := range cached.Headers {
		w.Header()[k] = vals
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
