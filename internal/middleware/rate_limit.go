package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"satellite-telemetry/internal/cache"
	"satellite-telemetry/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func skipRateLimit(path string) bool {
	return path == "/health" || path == "/metrics"
}

func rejectRateLimited(c *gin.Context, log *zap.Logger) {
	metrics.HTTPRateLimited.Inc()
	log.Warn("Rate limit exceeded",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":   "rate_limited",
		"message": "rate limit exceeded, please try again later",
	})
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

func IPRateLimitMiddleware(ipLimiter *IPRateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipRateLimit(c.Request.URL.Path) {
			c.Next()
			return
		}

		if !ipLimiter.GetLimiter(c.ClientIP()).Allow() {
			rejectRateLimited(c, log)
			return
		}

		c.Next()
	}
}

// RedisRateLimitMiddleware applies a fixed window of limit requests per client IP, shared across instances.
// Store failures let the request through.
func RedisRateLimitMiddleware(store cache.CounterStore, limit int64, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipRateLimit(c.Request.URL.Path) {
			c.Next()
			return
		}

		slot := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("%s:%d", c.ClientIP(), slot)

		count, err := store.IncrementWindow(c.Request.Context(), key, window)
		if err != nil {
			log.Error("Rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count > limit {
			rejectRateLimited(c, log)
			return
		}

		c.Next()
	}
}
