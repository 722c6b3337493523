// Package ratelimit bounds login, registration, magic-link, and MFA attempts
// per identifier and time window. The limiter is a collaborator: services
// consult it and surface rate_limited distinctly from invalid credentials,
// but enforcement lives here, outside the credential checks.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"identity-plane/internal/fault"
)

const (
	defaultMaxAttempts = 10
	defaultWindow      = 15 * time.Minute
)

// Limiter is a fixed-window counter over redis. A nil redis client disables
// limiting, which embedded deployments use.
type Limiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

// Config holds limiter thresholds. Zero values fall back to defaults
// (10 attempts / 15m).
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// New creates a limiter. redisClient may be nil to disable limiting.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultMaxAttempts
	}
	w := cfg.Window
	if w <= 0 {
		w = defaultWindow
	}
	return &Limiter{redis: redisClient, maxAttempts: int64(max), window: w}
}

func (l *Limiter) key(scope, id string) string {
	return "rl:" + scope + ":" + id
}

// Check reports whether the identifier may attempt the scoped operation.
// Returns a rate_limited fault when the window is exhausted and an
// unavailable fault when redis cannot answer.
func (l *Limiter) Check(ctx context.Context, scope, id string) error {
	if l.redis == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(scope, id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fault.Wrap(fault.KindUnavailable, "rate limiter unavailable", err)
	}
	if count >= l.maxAttempts {
		return fault.New(fault.KindRateLimited, "too many attempts")
	}
	return nil
}

// RecordFailure counts one failed attempt; the first failure in a window
// starts its expiry. Returns rate_limited when this failure exhausts the
// window.
func (l *Limiter) RecordFailure(ctx context.Context, scope, id string) error {
	if l.redis == nil {
		return nil
	}
	key := l.key(scope, id)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fault.Wrap(fault.KindUnavailable, "rate limiter unavailable", err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fault.Wrap(fault.KindUnavailable, "rate limiter unavailable", err)
		}
	}
	if count >= l.maxAttempts {
		return fault.New(fault.KindRateLimited, "too many attempts")
	}
	return nil
}

// Reset clears the identifier's window, typically after a success.
func (l *Limiter) Reset(ctx context.Context, scope, id string) error {
	if l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(scope, id)).Err(); err != nil {
		return fault.Wrap(fault.KindUnavailable, "rate limiter unavailable", err)
	}
	return nil
}
