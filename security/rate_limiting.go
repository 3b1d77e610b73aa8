package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"festival-tickets/models"
	"festival-tickets/monitoring"
)

// RateLimiter caps per-client request rates with a fixed window counter in
// Redis. Redis being unreachable fails open: a broken cache must never stop
// ticket scanning at the gate.
type RateLimiter struct {
	redis   *redis.Client
	monitor *monitoring.Monitor
	window  time.Duration
	max     int
}

func NewRateLimiter(redisClient *redis.Client, monitor *monitoring.Monitor, window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		monitor: monitor,
		window:  window,
		max:     max,
	}
}

// RateLimit is route middleware enforcing the per-IP window for one route.
func (r *RateLimiter) RateLimit(route string) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if r.allow(e.Request.Context(), route, e.RealIP()) {
			return e.Next()
		}

		r.monitor.TrackRateLimited(route)
		code := models.VerdictRateLimited
		return e.JSON(code.HTTPStatus(), map[string]any{
			"valid": false,
			"error": code.Message(),
		})
	}
}

// AntiBot rejects obvious crawler user agents on the public read endpoints.
func (r *RateLimiter) AntiBot() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.UserAgent()) {
			return e.JSON(http.StatusForbidden, map[string]string{
				"error": "Access denied",
			})
		}
		return e.Next()
	}
}

func (r *RateLimiter) allow(ctx context.Context, route, ip string) bool {
	key := fmt.Sprintf("ratelimit:%s:%s", route, ip)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("rate limiter unavailable, failing open", "route", route, "error", err)
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}
	return count <= int64(r.max)
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
