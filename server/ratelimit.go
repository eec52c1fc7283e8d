package server

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sambeau/xbview/config"
)

// rateLimiter implements a simple in-memory token bucket keyed by client IP.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow returns true if a request is permitted for the given key.
func (rl *rateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	if key == "" {
		key = "__global__"
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &tokenBucket{tokens: rl.limit - 1, lastRefill: now}
		return true
	}

	// Refill tokens based on elapsed windows.
	elapsed := now.Sub(bucket.lastRefill)
	if elapsed >= rl.window {
		bucket.tokens = min(bucket.tokens+int(elapsed/rl.window)*rl.limit, rl.limit)
		bucket.lastRefill = now
	}

	if bucket.tokens <= 0 {
		return false
	}

	bucket.tokens--
	return true
}

// prune drops buckets that have been idle for a full window.
func (rl *rateLimiter) prune() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) >= rl.window {
			delete(rl.buckets, key)
		}
	}
}

// newAPIRateLimit limits requests under /api/ per client. Pages are not
// limited; each one fetches several API rows at most.
func newAPIRateLimit(next http.Handler, cfg config.RateLimitConfig, rl *rateLimiter) http.Handler {
	if cfg.Requests <= 0 {
		return next
	}
	retryAfter := strconv.Itoa(int(max(cfg.Window, time.Second).Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") || rl.Allow(extractIP(r.RemoteAddr)) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Retry-After", retryAfter)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
	})
}
