package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const sweepEvery = time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle long enough
// to have refilled are swept, since a fresh bucket behaves the same.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perHour requests per client per hour, refilled evenly.
func NewRateLimiter(perHour int) *RateLimiter {
	if perHour <= 0 {
		perHour = 20
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(time.Hour / time.Duration(perHour)),
		burst:   perHour,
		idleTTL: time.Hour,
		now:     time.Now,
	}
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= sweepEvery {
		r.sweepLocked(now)
	}

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

func (r *RateLimiter) sweepLocked(now time.Time) {
	for k, b := range r.buckets {
		if now.Sub(b.seen) > r.idleTTL {
			delete(r.buckets, k)
		}
	}
	r.lastSweep = now
}

// Len reports how many clients currently hold a bucket.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error_code":  "rate_limited",
				"message_key": "errors.rate_limited",
			})
			return
		}
		c.Next()
	}
}
