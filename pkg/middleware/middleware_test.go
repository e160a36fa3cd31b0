package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/pkg/auth"
	"gigmarket/pkg/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func echoCaller() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, _ := auth.FromContext(r.Context())
		_, _ = w.Write([]byte(a.AccountID + ":" + string(a.Role)))
	})
}

func TestAuthenticate(t *testing.T) {
	h := Authenticate(testSecret, logger.Discard())(echoCaller())

	token, err := auth.IssueToken(auth.New("acct-1", auth.RoleCustomer), testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken(auth.New("acct-1", auth.RoleCustomer), testSecret, -time.Hour)
	require.NoError(t, err)
	foreign, err := auth.IssueToken(auth.New("acct-1", auth.RoleAdmin), "another-secret-another-secret-00", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "valid", header: "Bearer " + token, wantCode: http.StatusOK, wantBody: "acct-1:customer"},
		{name: "missing", header: "", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHORIZED"},
		{name: "expired", header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantBody: "Invalid token"},
		{name: "wrong secret", header: "Bearer " + foreign, wantCode: http.StatusUnauthorized, wantBody: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRateLimit_PerAccount(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	h := RateLimit(limiter, AccountKeyExtractor, logger.Discard())(echoCaller())

	send := func(account string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithContext(req.Context(), auth.New(account, auth.RoleCustomer)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("a").Code)
	assert.Equal(t, http.StatusOK, send("a").Code)
	limited := send("a")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, send("b").Code)
}

func TestRateLimit_WindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	now := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := limiter.Allow(ctx, "k")
	assert.True(t, ok)

	now = now.Add(15 * time.Second)
	ok, retry := limiter.Allow(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, retry)

	now = now.Add(46 * time.Second)
	ok, _ = limiter.Allow(ctx, "k")
	assert.True(t, ok)
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	keys       []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	l.keys = append(l.keys, key)
	return l.allowed, l.retryAfter
}

func (l *stubLimiter) Stop() {}

func TestRateLimit_UsesLimiterRetryAfter(t *testing.T) {
	limiter := &stubLimiter{retryAfter: 1500 * time.Millisecond}
	h := RateLimit(limiter, nil, logger.Discard())(echoCaller())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithContext(req.Context(), auth.New("acct-9", auth.RoleCustomer)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Equal(t, []string{"account:acct-9"}, limiter.keys)
}

func TestRedisRateLimiter_Refill(t *testing.T) {
	l := NewRedisRateLimiter(nil, 60, time.Minute, logger.Discard())
	assert.Equal(t, 60, l.capacity)
	assert.Equal(t, time.Second, l.interval)
	assert.Equal(t, 2*time.Minute, l.ttl)

	burst := NewRedisRateLimiter(nil, 5000, time.Second, logger.Discard())
	assert.Equal(t, time.Millisecond, burst.interval)
	assert.Equal(t, 2*time.Second, burst.ttl)
}

func TestRedisRateLimiter_UnreachableAllows(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	l := NewRedisRateLimiter(rdb, 1, time.Minute, logger.Discard())

	for i := 0; i < 3; i++ {
		ok, retry := l.Allow(context.Background(), "account:a")
		assert.True(t, ok)
		assert.Zero(t, retry)
	}
}

func TestBucketResult(t *testing.T) {
	allowed, retry, ok := bucketResult([]int64{1, 4, 0})
	assert.True(t, ok)
	assert.True(t, allowed)
	assert.Zero(t, retry)

	allowed, retry, ok = bucketResult([]int64{0, 0, 750})
	assert.True(t, ok)
	assert.False(t, allowed)
	assert.Equal(t, 750*time.Millisecond, retry)

	_, _, ok = bucketResult([]int64{1})
	assert.False(t, ok)
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, DefaultIdempotencyHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	}))

	send := func(account, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, key)
		req = req.WithContext(auth.WithContext(req.Context(), auth.New(account, auth.RoleCustomer)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("a", "k1")
	second := send("a", "k1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())

	send("b", "k1")
	assert.Equal(t, int32(2), calls.Load(), "keys are scoped to the caller")
}

func TestIdempotency_FailuresAreNotCached(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(DefaultIdempotencyHeader, "same")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-42", seen)
}
