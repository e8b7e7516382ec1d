package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinrota/clinrota/internal/platform/auth"
)

// RateLimitConfig tunes the per-caller token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// WriteCost is how many tokens a mutating request (anything but GET or
	// HEAD) burns. Rota writes fan out into availability recomputes, so they
	// are charged more than reads. Zero or negative means 1.
	WriteCost int
}

// DefaultRateLimitConfig allows a steady 100 reads per second with bursts of
// 200, with writes charged five reads each.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		WriteCost:         5,
	}
}

// bucket is a refilling token bucket for one caller.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	lastSeen   time.Time
}

func newBucket(rate float64, burst int) *bucket {
	now := time.Now()
	return &bucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: now,
		lastSeen:   now,
	}
}

// take spends cost tokens if available. When it cannot, it returns the whole
// seconds to wait before the bucket holds that many tokens again.
func (b *bucket) take(cost float64) (ok bool, retryAfter int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
	b.lastSeen = now

	if b.tokens >= cost {
		b.tokens -= cost
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int((cost-b.tokens)/b.refillRate) + 1
}

// callerBuckets maps rate limit keys to their buckets, shedding buckets that
// have gone quiet so one-off callers do not accumulate forever.
type callerBuckets struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     RateLimitConfig
}

const bucketIdleEviction = 10 * time.Minute

func newCallerBuckets(cfg RateLimitConfig) *callerBuckets {
	return &callerBuckets{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
	}
}

func (s *callerBuckets) get(key string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		if len(s.buckets) > 4096 {
			s.evictIdleLocked()
		}
		b = newBucket(s.cfg.RequestsPerSecond, s.cfg.BurstSize)
		s.buckets[key] = b
	}
	return b
}

func (s *callerBuckets) evictIdleLocked() {
	cutoff := time.Now().Add(-bucketIdleEviction)
	for key, b := range s.buckets {
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(s.buckets, key)
		}
	}
}

// rateLimitKey identifies the caller. An authenticated staff member gets an
// individual budget keyed by user and tenant; anonymous traffic shares a
// per-tenant, per-address budget.
func rateLimitKey(c echo.Context) string {
	tenant, _ := c.Get("tenant_id").(string)
	if userID := auth.UserIDFromContext(c.Request().Context()); userID != "" {
		return tenant + ":user:" + userID
	}
	return tenant + ":ip:" + c.RealIP()
}

// RateLimit throttles callers with a token bucket per user (or per address
// when unauthenticated). Mutating requests cost cfg.WriteCost tokens.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.WriteCost <= 0 {
		cfg.WriteCost = 1
	}
	store := newCallerBuckets(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cost := 1.0
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead:
			default:
				cost = float64(cfg.WriteCost)
			}

			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)

			ok, retryAfter := store.get(rateLimitKey(c)).take(cost)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
