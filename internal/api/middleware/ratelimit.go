package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for the per-client limiter
type RateLimitConfig struct {
	Requests  int           // allowed per Window
	Window    time.Duration // refill period for Requests tokens
	SkipPaths []string      // never limited (health probes)
	OnLimited gin.HandlerFunc
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client IP
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing requests per window per client
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(window / time.Duration(requests)),
		burst:     requests,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Reserve takes a token for key. It returns the remaining tokens, or the wait
// before the next token when the client is over its budget.
func (rl *RateLimiter) Reserve(key string) (remaining int, retryAfter time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return 0, delay
	}

	return int(math.Max(0, math.Floor(v.limiter.TokensAt(now)))), 0
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// sweep drops clients idle for a full window; their bucket would be full anyway
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.window {
			delete(rl.visitors, key)
		}
	}
	rl.lastSweep = now
}

// RateLimit middleware rejects clients over budget with 429 and Retry-After
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return RateLimitWith(NewRateLimiter(cfg.Requests, cfg.Window), cfg)
}

// RateLimitWith is RateLimit over an existing limiter
func RateLimitWith(rl *RateLimiter, cfg RateLimitConfig) gin.HandlerFunc {
	skipMap := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	onLimited := cfg.OnLimited
	if onLimited == nil {
		onLimited = func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":       "RATE_LIMIT_EXCEEDED",
					"message":    "Rate limit exceeded",
					"request_id": GetRequestID(c),
					"timestamp":  time.Now(),
				},
			})
		}
	}

	limit := strconv.Itoa(rl.burst)

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		remaining, retryAfter := rl.Reserve(c.ClientIP())
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if retryAfter > 0 {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))

			log.Warn().
				Str("request_id", GetRequestID(c)).
				Str("ip", c.ClientIP()).
				Int("retry_after_s", seconds).
				Msg("Rate limit exceeded")

			onLimited(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
