package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"gigmarket/pkg/auth"
	"gigmarket/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, response *CachedResponse)
	Stop() // Stop cleanup goroutines and release resources
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu       sync.RWMutex
	store    map[string]*CachedResponse
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:  make(map[string]*CachedResponse),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	s.mu.RLock()
	response, exists := s.store[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(response.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, false
	}

	return response, true
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RedisIdempotencyStore shares cached responses between replicas
type RedisIdempotencyStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl, prefix: "idempotency:", log: log}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return nil, false
	}
	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		s.log.Warn("Idempotency store failed", "error", err)
	}
}

func (s *RedisIdempotencyStore) Stop() {}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated key.
// Keys are scoped to the caller, method and path.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(headerName)
			if header == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := scopedIdempotencyKey(r, header)
			if cached, found := store.Get(r.Context(), key); found {
				replayCachedResponse(w, cached)
				return
			}

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(capture, r)

			if capture.statusCode >= 200 && capture.statusCode < 300 {
				store.Set(r.Context(), key, &CachedResponse{
					StatusCode: capture.statusCode,
					Headers:    w.Header().Clone(),
					Body:       capture.body.Bytes(),
				})
			}
		})
	}
}

func scopedIdempotencyKey(r *http.Request, header string) string {
	account := ""
	if a, ok := auth.FromContext(r.Context()); ok {
		account = a.AccountID
	}
	return account + "|" + r.Method + "|" + r.URL.Path + "|" + header
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		w.Header()[key] = values
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
