package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateBucket tracks request counts per client within a time window.
type rateBucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter caps how often a client may send commands, so a runaway
// content script cannot flood the translation service with submissions.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	limit     int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimiter allows at most limit requests per window per client.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rateBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// sweep drops expired buckets once per window. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// clientKey prefers the token subject over the address; every extension
// request arrives from loopback.
func clientKey(r *http.Request) string {
	if claims := GetClaims(r); claims != nil && claims.Subject != "" {
		return "client:" + claims.Subject
	}
	return r.RemoteAddr // chi RealIP middleware sets this to the actual client IP
}

// Handler returns an http.Handler middleware that enforces the rate limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		rl.mu.Lock()
		now := rl.now()
		rl.sweep(now)
		b, exists := rl.buckets[key]
		if !exists || now.After(b.resetAt) {
			b = &rateBucket{count: 0, resetAt: now.Add(rl.window)}
			rl.buckets[key] = b
		}
		b.count++
		allowed := b.count <= rl.limit
		retry := int(b.resetAt.Sub(now).Seconds()) + 1
		rl.mu.Unlock()

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests, try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
