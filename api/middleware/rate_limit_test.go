package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/riverbyte/capacity-engine/api/middleware"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("client-a"))
	}
	assert.False(t, limiter.Allow("client-a"))

	// Other clients are tracked independently.
	assert.True(t, limiter.Allow("client-b"))
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 10*time.Millisecond)

	assert.True(t, limiter.Allow("client-a"))
	assert.False(t, limiter.Allow("client-a"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, limiter.Allow("client-a"))
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("client-a"))
	assert.False(t, limiter.Allow("client-a"))

	limiter.Reset("client-a")
	assert.True(t, limiter.Allow("client-a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.RateLimit(middleware.NewRateLimiter(2, time.Minute)))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
