package api

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/eventdesk/dashboard/pkg/ratelimit"
)

// GlobalRateLimiter enforces a per-IP request budget. With a shared store the budget
// is enforced across instances; otherwise each instance keeps its own limiters.
type GlobalRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	policy   ratelimit.Policy
	shared   ratelimit.Store
	deny     func(w http.ResponseWriter, r *http.Request, retryAfter int)
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewGlobalRateLimiter(policy ratelimit.Policy, shared ratelimit.Store) *GlobalRateLimiter {
	return &GlobalRateLimiter{
		visitors: make(map[string]*visitor),
		policy:   policy,
		shared:   shared,
		now:      time.Now,
	}
}

func (rl *GlobalRateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.policy.RPS), rl.policy.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// RunCleanup removes visitors idle for three minutes, checking every minute.
func (rl *GlobalRateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup(3 * time.Minute)
		}
	}
}

func (rl *GlobalRateLimiter) cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > idle {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *GlobalRateLimiter) retryAfter() int {
	if rl.policy.RPS <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/rl.policy.RPS)))
}

// Middleware rejects requests over budget with 429. Errors of the shared store fail open.
func (rl *GlobalRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed := true
		if rl.shared != nil {
			ok, err := rl.shared.Allow(r.Context(), "ip:"+ip, rl.policy, 1)
			allowed = ok || err != nil
		} else {
			allowed = rl.getVisitor(ip).Allow()
		}

		if !allowed {
			if rl.deny != nil {
				rl.deny(w, r, rl.retryAfter())
			} else {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
	}
	return ip
}
