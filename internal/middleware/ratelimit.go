package middleware

import (
	"net/http"
	"sync"
	"time"

	"petchat/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 3 * time.Minute
	limiterSweepEvery = time.Minute
)

// KeyedRateLimiter keeps one token bucket per key (viewer id or client IP).
// Idle buckets are swept lazily on access, so no background goroutine is needed.
type KeyedRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*rateLimiterEntry
	r         rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedRateLimiter allows rps requests per second with the given burst per key.
func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		entries: make(map[string]*rateLimiterEntry),
		r:       rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (rl *KeyedRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	if now.Sub(rl.lastSweep) > limiterSweepEvery {
		for k, entry := range rl.entries {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(rl.entries, k)
			}
		}
		rl.lastSweep = now
	}

	entry, ok := rl.entries[key]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.entries[key] = entry
	}
	entry.lastSeen = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (rl *KeyedRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// RateLimit throttles per authenticated viewer, falling back to the client IP.
func RateLimit(limiter *KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if v, ok := ViewerFrom(c); ok {
			key = "user:" + v.UserID
		}

		if !limiter.Allow(key) {
			logger.Warn().
				Str("key", key).
				Str("path", c.Request.URL.Path).
				Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
