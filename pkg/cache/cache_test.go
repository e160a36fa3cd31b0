package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemory_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory[string](time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, "a", "one")
	got, ok := m.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "one", got)

	now = now.Add(time.Minute)
	_, ok = m.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory[int](0)
	ctx := context.Background()

	m.Set(ctx, "a", 1)
	m.Delete(ctx, "a")
	_, ok := m.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestScoped(t *testing.T) {
	c := NewScoped[*int]("p:")
	v := 7

	c.Set(context.Background(), "a", &v)
	_, ok := c.Get(context.Background(), "a")
	assert.False(t, ok, "no scope, no caching")

	ctx := WithScope(context.Background())
	c.Set(ctx, "a", &v)
	got, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Same(t, &v, got)

	_, ok = c.Get(WithScope(context.Background()), "a")
	assert.False(t, ok, "scopes are isolated")

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestScopeHandler(t *testing.T) {
	c := NewScoped[string]("")
	var hit bool
	h := ScopeHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Set(r.Context(), "k", "v")
		_, hit = c.Get(r.Context(), "k")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hit)
}

func TestNop(t *testing.T) {
	var c Cache[string] = Nop[string]{}
	c.Set(context.Background(), "a", "b")
	_, ok := c.Get(context.Background(), "a")
	assert.False(t, ok)
}
