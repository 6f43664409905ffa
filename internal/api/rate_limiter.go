package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 30 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// authRateLimiter keeps one token bucket per client key for the unauthenticated auth
// endpoints. Idle buckets are pruned on access.
type authRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastPrune time.Time
}

func newAuthRateLimiter(perMinute int, burst int) *authRateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &authRateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
	}
}

func (limiter *authRateLimiter) allow(key string, now time.Time) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	limiter.pruneLocked(now)

	entry, ok := limiter.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (limiter *authRateLimiter) pruneLocked(now time.Time) {
	if now.Sub(limiter.lastPrune) < time.Minute {
		return
	}
	limiter.lastPrune = now

	threshold := now.Add(-limiterIdleTTL)
	for key, entry := range limiter.entries {
		if entry.lastSeen.Before(threshold) {
			delete(limiter.entries, key)
		}
	}
}

func (limiter *authRateLimiter) size() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.entries)
}

func requestLimiterKey(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.IP())
	if key == "" {
		return "unknown"
	}
	return key
}

// RateLimitAuth rejects bursts of auth requests from one client with 429.
func (handler *Handler) RateLimitAuth(c *fiber.Ctx) error {
	key := requestLimiterKey(c) + "|" + c.Path()
	if handler.authLimiter.allow(key, handler.now()) {
		return c.Next()
	}

	handler.metrics.RecordRateLimited(utils.CopyString(c.Path()))
	handler.logger.WithFields(logrus.Fields{
		"path": c.Path(),
		"ip":   c.IP(),
	}).Warn("auth rate limit exceeded")
	c.Set(fiber.HeaderRetryAfter, "60")
	return apiError(c, fiber.StatusTooManyRequests, "too many requests")
}
