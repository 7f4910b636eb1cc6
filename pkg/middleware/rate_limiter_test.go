package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"slimechat/backend/pkg/errors"
	"slimechat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newLimitedEngine(limit rate.Limit, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New(logger.Config{Level: "error", JSON: false, Output: io.Discard})

	limiter := NewRateLimiter(log, RateLimiterOptions{
		Limit: limit,
		Burst: burst,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	engine := gin.New()
	engine.Use(errors.ErrorHandler())
	engine.Use(limiter.Middleware())
	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return engine
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	engine := newLimitedEngine(1, 3)

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d within burst", i+1)
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	engine := newLimitedEngine(0.001, 1)

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest(http.MethodGet, "/ping", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
