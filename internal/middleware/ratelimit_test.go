package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(limiter gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler(false), limiter)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func get(router http.Handler, clientID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	router := limitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  3,
		Window: time.Second,
	}))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "").Code, "Request %d should succeed", i+1)
	}

	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "4th request should be rate limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// Refill
	time.Sleep(time.Second + 100*time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router, "").Code, "Request after window should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	router := limitedRouter(NewRateLimiter(RateLimitConfig{
		Limit:  2,
		Window: time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.GetHeader("X-Client-ID")
		},
	}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "client-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "client-a").Code)

	// Client B has its own bucket
	assert.Equal(t, http.StatusOK, get(router, "client-b").Code)
}

func TestRateLimitConfigDefaults(t *testing.T) {
	cfg := RateLimitConfig{}.withDefaults()
	assert.NotNil(t, cfg.KeyFunc)
	assert.Equal(t, DefaultRateLimitConfig().Limit, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)

	assert.Less(t, AuthRateLimitConfig().Limit, UploadRateLimitConfig().Limit)
	assert.Less(t, UploadRateLimitConfig().Limit, DefaultRateLimitConfig().Limit)
}

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	assert.GreaterOrEqual(t, tb.RetryAfter(), 1)

	assert.True(t, tb.full(time.Now().Add(5*time.Second)))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Limit: 1, Window: time.Second})
	allowed, _ := rl.Allow("a")
	assert.True(t, allowed)
	allowed, retry := rl.Allow("a")
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retry, 1)

	rl.mu.Lock()
	rl.sweepLocked(time.Now().Add(time.Minute))
	remaining := len(rl.buckets)
	rl.mu.Unlock()
	assert.Equal(t, 0, remaining)
}
