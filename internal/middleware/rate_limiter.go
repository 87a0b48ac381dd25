package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures rate limiting behavior
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	IdleTTL           time.Duration // limiters unused for this long are evicted
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterMap stores rate limiters per member, falling back to client IP
type rateLimiterMap struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	config   RateLimiterConfig
}

// NewRateLimiterMap creates a new rate limiter map
func NewRateLimiterMap(config RateLimiterConfig) *rateLimiterMap {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	rl := &rateLimiterMap{
		limiters: make(map[string]*limiterEntry),
		config:   config,
	}

	go rl.cleanup()

	return rl
}

// getLimiter returns or creates the limiter for key
func (rl *rateLimiterMap) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// evict drops limiters idle since before cutoff
func (rl *rateLimiterMap) evict(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			n++
		}
	}
	return n
}

func (rl *rateLimiterMap) cleanup() {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for range ticker.C {
		if n := rl.evict(time.Now().Add(-rl.config.IdleTTL)); n > 0 {
			log.Debugf("Evicted %d idle rate limiters", n)
		}
	}
}

// limiterKey prefers the authenticated member so members behind one NAT do
// not share a budget
func limiterKey(c *gin.Context) string {
	if actor, ok := ActorFrom(c); ok {
		return "member:" + strconv.FormatUint(uint64(actor.ID), 10)
	}
	return "ip:" + c.ClientIP()
}

// RateLimiterMiddleware creates a rate limiting middleware
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	limiterMap := NewRateLimiterMap(config)

	return func(c *gin.Context) {
		key := limiterKey(c)
		limiter := limiterMap.getLimiter(key)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.DelayFrom(time.Now()).Seconds()
			reservation.Cancel()

			log.WithFields(log.Fields{
				"key":  key,
				"path": c.FullPath(),
			}).Warn("Rate limit exceeded")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
