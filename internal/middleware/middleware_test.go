package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"satellite-telemetry/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/telemetry", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.1.2.3:5555"
	r.ServeHTTP(w, req)
	return w
}

func TestIPRateLimitMiddleware(t *testing.T) {
	r := newEngine(IPRateLimitMiddleware(NewIPRateLimiter(rate.Limit(0.001), 2), zap.NewNop()))

	assert.Equal(t, http.StatusOK, get(r, "/telemetry").Code)
	assert.Equal(t, http.StatusOK, get(r, "/telemetry").Code)

	w := get(r, "/telemetry")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate_limited","message":"rate limit exceeded, please try again later"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
}

func TestIPRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, limiter.GetLimiter("a"), limiter.GetLimiter("a"))
	assert.NotSame(t, limiter.GetLimiter("a"), limiter.GetLimiter("b"))
}

func TestRedisRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := cache.NewRedisCounterStore(client, "ratelimit:")
	r := newEngine(RedisRateLimitMiddleware(store, 3, time.Hour, zap.NewNop()))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get(r, "/telemetry").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/telemetry").Code)
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
}

func TestRedisRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	r := newEngine(RedisRateLimitMiddleware(cache.NewRedisCounterStore(client, ""), 1, time.Minute, zap.NewNop()))
	assert.Equal(t, http.StatusOK, get(r, "/telemetry").Code)
	assert.Equal(t, http.StatusOK, get(r, "/telemetry").Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := get(r, "/telemetry")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/telemetry", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryAndLogging(t *testing.T) {
	r := newEngine(RequestID(), Logger(zap.NewNop()), Metrics(), Recovery(zap.NewNop()))

	w := get(r, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"internal server error"}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(r, "/nowhere").Code)
}
