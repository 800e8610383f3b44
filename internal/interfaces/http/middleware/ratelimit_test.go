package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 3, 0)
	r := newLimitedRouter(limiter)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)
	r := newLimitedRouter(limiter)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, second.Body.String(), "COMMON_005")
}

func TestTokenBucketRefills(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 1, 0)

	allowed, _ := limiter.Allow("k")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("k")
	require.False(t, allowed)

	time.Sleep(30 * time.Millisecond)
	allowed, info := limiter.Allow("k")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Limit)
}

func TestTokenBucketKeysAreIndependent(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.001, 1, 0)

	allowed, _ := limiter.Allow("a")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("a")
	require.False(t, allowed)

	allowed, _ = limiter.Allow("b")
	assert.True(t, allowed)
}
