package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	perMinute int
	burst     int
	idleTTL   time.Duration

	mu       sync.Mutex
	visitors map[string]*rateEntry
	clockNow func() time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		perMinute: perMinute,
		burst:     burst,
		idleTTL:   10 * time.Minute,
		visitors:  make(map[string]*rateEntry),
		clockNow:  time.Now,
	}
}

// Middleware limits requests per key. A non-positive rate disables limiting;
// an empty key is never limited.
func (r *RateLimiter) Middleware(key func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil || r.perMinute <= 0 {
			return c.Next()
		}
		id := key(c)
		if id == "" {
			return c.Next()
		}
		if !r.Allow(id) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, slow down.",
			})
		}
		return c.Next()
	}
}

func (r *RateLimiter) Allow(id string) bool {
	return r.obtainLimiter(id).AllowN(r.clockNow(), 1)
}

func (r *RateLimiter) obtainLimiter(id string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clockNow()
	r.sweepLocked(now)

	entry, ok := r.visitors[id]
	if !ok {
		perSecond := float64(r.perMinute) / 60.0
		entry = &rateEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), r.burst)}
		r.visitors[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweepLocked drops buckets idle for longer than idleTTL.
func (r *RateLimiter) sweepLocked(now time.Time) {
	if len(r.visitors) < 1024 {
		return
	}
	for id, entry := range r.visitors {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.visitors, id)
		}
	}
}
