package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unitedunion/uubank/internal/auth"
)

// LoginRateLimit counts attempts per key in fixed one-minute windows kept in
// Redis. It plugs into auth.Manager through auth.WithLimiter.
type LoginRateLimit struct {
	cache     *redis.Client
	maxPerMin int
	logger    *slog.Logger
}

// NewLoginRateLimit returns nil when maxPerMin is zero or Redis is absent,
// which leaves attempts unlimited.
func NewLoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) *LoginRateLimit {
	if cache == nil || maxPerMin <= 0 {
		return nil
	}
	return &LoginRateLimit{cache: cache, maxPerMin: maxPerMin, logger: logger}
}

// Allow fails open on cache errors.
func (l *LoginRateLimit) Allow(ctx context.Context, key string) error {
	cacheKey := "rl:auth:" + key
	cnt, err := l.cache.Incr(ctx, cacheKey).Result()
	if err != nil {
		l.logger.Warn("rate limit lookup failed", slog.Any("error", err))
		return nil
	}
	if cnt == 1 {
		l.cache.Expire(ctx, cacheKey, time.Minute)
	}
	if cnt > int64(l.maxPerMin) {
		return auth.ErrRateLimited
	}
	return nil
}
