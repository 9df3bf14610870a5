package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Enabled       bool
	MaxDispatches int
	Window        time.Duration
	Prefix        string
}

// Limiter caps dispatches per issue and tag using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter]. A nil client or disabled config yields a limiter that
// always allows.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "gr"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Active reports whether Allow consults Redis at all.
func (l *Limiter) Active() bool {
	return l != nil && l.redis != nil && l.config.Enabled && l.config.MaxDispatches > 0
}

// Allow counts one dispatch for the issue/tag pair and returns ErrRateLimited once
// the window budget is exceeded.
func (l *Limiter) Allow(ctx context.Context, issueID, tag string) error {
	if !l.Active() {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(issueID, tag), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxDispatches) {
		return ErrRateLimited
	}
	return nil
}

// Count returns the current window counter. Missing keys return zero.
func (l *Limiter) Count(ctx context.Context, issueID, tag string) (int, error) {
	if !l.Active() {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.key(issueID, tag)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the counter for the issue/tag pair.
func (l *Limiter) Reset(ctx context.Context, issueID, tag string) error {
	if !l.Active() {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(issueID, tag)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(issueID, tag string) string {
	return "rd:" + l.config.Prefix + ":" + issueID + ":" + strings.ToLower(tag)
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
