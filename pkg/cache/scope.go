package cache

import (
	"context"
	"net/http"
	"sync"
)

type scopeKey struct{}

type scope struct {
	mu      sync.Mutex
	entries map[string]any
}

// WithScope returns a context carrying a fresh request-scoped cache
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{entries: make(map[string]any)})
}

// ScopeHandler gives every request its own scope
func ScopeHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context())))
	})
}

// Scoped caches values for the lifetime of the request context. Outside a
// scope every lookup misses.
type Scoped[T any] struct {
	prefix string
}

func NewScoped[T any](prefix string) *Scoped[T] {
	return &Scoped[T]{prefix: prefix}
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

func (c *Scoped[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	s := scopeFrom(ctx)
	if s == nil {
		return zero, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[c.prefix+key].(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func (c *Scoped[T]) Set(ctx context.Context, key string, value T) {
	if s := scopeFrom(ctx); s != nil {
		s.mu.Lock()
		s.entries[c.prefix+key] = value
		s.mu.Unlock()
	}
}

func (c *Scoped[T]) Delete(ctx context.Context, key string) {
	if s := scopeFrom(ctx); s != nil {
		s.mu.Lock()
		delete(s.entries, c.prefix+key)
		s.mu.Unlock()
	}
}
