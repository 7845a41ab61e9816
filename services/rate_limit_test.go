package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}}
}

func (m *memoryCounter) IncrementWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, 0, m.err
	}
	m.counts[key]++
	return m.counts[key], window, nil
}

func TestIsAllowedFixedWindow(t *testing.T) {
	svc := NewRateLimitService(newMemoryCounter())
	svc.SetLimit(RateLimitProofSubmit, 2, time.Hour)
	ctx := context.Background()

	allowed, info, err := svc.IsAllowed(ctx, "u1", RateLimitProofSubmit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Remaining)

	allowed, _, err = svc.IsAllowed(ctx, "u1", RateLimitProofSubmit)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, info, err = svc.IsAllowed(ctx, "u1", RateLimitProofSubmit)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, info.Remaining)

	allowed, _, err = svc.IsAllowed(ctx, "u2", RateLimitProofSubmit)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowedUnknownEndpoint(t *testing.T) {
	svc := NewRateLimitService(newMemoryCounter())

	allowed, info, err := svc.IsAllowed(context.Background(), "u1", "unknown")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, -1, info.Remaining)
}

func TestRateLimitMiddleware(t *testing.T) {
	store := newMemoryCounter()
	svc := NewRateLimitService(store)
	svc.SetLimit(RateLimitAPIGeneral, 1, time.Minute)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(svc.IPRateLimit())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	store.err = errors.New("redis down")
	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
