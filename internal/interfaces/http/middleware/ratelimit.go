package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key. A bucket refills limit tokens
// per window and holds at most limit tokens.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	every   rate.Limit
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window per key
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		idle:    2 * window,
		now:     time.Now,
	}
}

func (rl *RateLimiter) bucketFor(key string, now time.Time) *bucket {
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Allow reports whether one more request for key fits the budget
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	return rl.bucketFor(key, now).limiter.AllowN(now, 1)
}

// Remaining returns the whole tokens left for key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok {
		return rl.limit
	}
	return max(0, int(b.limiter.TokensAt(rl.now())))
}

// Sweep drops buckets idle for two windows. They are full again by then.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until stop is closed
func (rl *RateLimiter) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// RateLimit limits per tenant once JWTAuth has run, per client IP before
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		if actor, ok := GetActor(c); ok {
			return "tenant:" + actor.CompanyID
		}
		return "ip:" + c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with a custom key
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		if !limiter.Allow(key) {
			c.Header("Retry-After", "1")
			abort(c, dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
