package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gigmarket/pkg/auth"
	"gigmarket/pkg/logger"
)

// KeyExtractor picks the identity a request is rate limited by
type KeyExtractor func(r *http.Request) string

// Limiter admits or refuses one request for key. When it refuses, retryAfter
// is how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration)
	Stop()
}

// RateLimiter is a sliding window kept in process memory. Use it when no
// Redis is configured; each replica counts on its own.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	limiter := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	go limiter.cleanup()

	return limiter
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow records a request for key and reports whether it fits the window
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	if key == "" {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false, rl.window - now.Sub(valid[0])
	}

	rl.requests[key] = append(valid, now)
	return true, 0
}

func RateLimit(limiter Limiter, extractor KeyExtractor, log *logger.Logger) func(http.Handler) http.Handler {
	if extractor == nil {
		extractor = AccountKeyExtractor
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractor(r)

			allowed, retryAfter := limiter.Allow(r.Context(), key)
			if !allowed {
				log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"key", key,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)
				w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
				writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AccountKeyExtractor limits authenticated callers by account and anonymous
// callers by remote address.
func AccountKeyExtractor(r *http.Request) string {
	if a, ok := auth.FromContext(r.Context()); ok && !a.Anonymous() {
		return "account:" + a.AccountID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
