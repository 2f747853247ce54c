package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chirpsocial/backend/internal/errors"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket a request counts against
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   100,
		Window:  time.Minute,
		KeyFunc: UserOrIPKey,
	}
}

// WriteRateLimitConfig limits mutating requests per user per minute
func WriteRateLimitConfig(limit int) RateLimitConfig {
	cfg := DefaultRateLimitConfig()
	cfg.Limit = limit
	return cfg
}

// UserOrIPKey keys authenticated requests by user and the rest by client IP
func UserOrIPKey(c *gin.Context) string {
	if userID := c.GetString(util.ContextUserIDKey); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// WindowCounter counts hits in a fixed window shared across instances.
// cache.RedisClient implements it.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = math.Min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// Allow checks if a request is allowed based on token availability
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// GetRetryAfter returns seconds to wait before next request
func (tb *TokenBucket) GetRetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

// full reports whether the bucket has refilled completely and can be dropped
func (tb *TokenBucket) full(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(now)
	return tb.tokens >= tb.maxTokens
}

// RateLimiter keeps one in-process token bucket per key. It is the fallback
// when Redis is not configured or not answering.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.Mutex
}

func newRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = UserOrIPKey
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
}

// NewRateLimiter creates a new in-memory rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	rl := newRateLimiter(config)
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)
		if !rl.Allow(key) {
			reject(c, rl.config.Limit, rl.GetRetryAfter(key))
			return
		}
		c.Next()
	}
}

// Allow checks if a key is allowed to make a request
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[key] = bucket
	}
	if len(rl.buckets) > 10000 {
		rl.sweepLocked(time.Now())
	}
	rl.mu.Unlock()

	return bucket.Allow()
}

// GetRetryAfter gets retry-after seconds for a key
func (rl *RateLimiter) GetRetryAfter(key string) int {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	rl.mu.Unlock()
	if !exists {
		return 1
	}
	return bucket.GetRetryAfter()
}

// sweepLocked drops buckets that have fully refilled; they are
// indistinguishable from new ones.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, bucket := range rl.buckets {
		if bucket.full(now) {
			delete(rl.buckets, key)
		}
	}
}

// WriteRateLimit limits mutating requests (anything but GET, HEAD and
// OPTIONS). With a counter it uses a fixed window in Redis shared by every
// server; if the counter is nil or errors, it falls back to the in-memory
// token bucket for that request.
func WriteRateLimit(counter WindowCounter, config RateLimitConfig) gin.HandlerFunc {
	fallback := newRateLimiter(config)
	keyFunc := fallback.config.KeyFunc

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if config.Limit <= 0 {
			c.Next()
			return
		}

		key := keyFunc(c)
		if counter != nil {
			count, err := counter.Hit(c.Request.Context(), "ratelimit:"+key, config.Window)
			if err == nil {
				remaining := config.Limit - int(count)
				if remaining < 0 {
					reject(c, config.Limit, int(config.Window.Seconds()))
					return
				}
				c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
				c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
				c.Next()
				return
			}
			logger.Log.Warn("Rate limit counter unavailable, using in-memory limiter",
				zap.String("key", key), zap.Error(err))
		}

		if !fallback.Allow(key) {
			reject(c, config.Limit, fallback.GetRetryAfter(key))
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, limit, retryAfter int) {
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	metrics.Get().RateLimitExceededTotal.WithLabelValues(path).Inc()

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	util.RespondWithAPIError(c, errors.RateLimited(""))
}
