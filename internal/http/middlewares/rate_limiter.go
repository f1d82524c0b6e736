package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Fixed-window per-client limiter. Good enough for a single instance;
// a shared limit across replicas would need the Redis counter instead.
type RateLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	counters map[string]*windowCounter
}

type windowCounter struct {
	windowStart time.Time
	count       int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window:   window,
		limit:    limit,
		counters: make(map[string]*windowCounter),
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc, ok := rl.counters[key]
	if !ok || now.Sub(wc.windowStart) >= rl.window {
		rl.counters[key] = &windowCounter{windowStart: now, count: 1}
		return true
	}

	if wc.count >= rl.limit {
		return false
	}

	wc.count++
	return true
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !rl.allow(key, time.Now()) {
			c.Header("Retry-After", rl.window.String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests, slow down",
				},
			})
			return
		}

		c.Next()
	}
}
