package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketRefills(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(2, 1, start)

	assert.True(t, tb.Allow(start))
	assert.True(t, tb.Allow(start))
	assert.False(t, tb.Allow(start))

	assert.True(t, tb.Allow(start.Add(time.Second)))
	assert.False(t, tb.Allow(start.Add(time.Second)))

	// Refill never exceeds capacity.
	later := start.Add(time.Hour)
	assert.True(t, tb.Allow(later))
	assert.True(t, tb.Allow(later))
	assert.False(t, tb.Allow(later))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, "")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Hour)
	assert.Equal(t, 0, rl.Cleanup(2*time.Hour))
	assert.Equal(t, 2, rl.Cleanup(30*time.Minute))
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiterHandler(t *testing.T) {
	a := NewAuth(secret, nil)
	rl := NewRateLimiter(2, time.Hour, "slow down")

	app := fiber.New()
	app.Get("/health", rl.Handler(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api", a.Middleware(), rl.Handler(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	u1, err := a.IssueToken("u1", time.Hour)
	require.NoError(t, err)
	u2, err := a.IssueToken("u2", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(t, app, "/api", u1))
	assert.Equal(t, http.StatusOK, get(t, app, "/api", u1))
	assert.Equal(t, http.StatusTooManyRequests, get(t, app, "/api", u1))
	assert.Equal(t, http.StatusOK, get(t, app, "/api", u2))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
