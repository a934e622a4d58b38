package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/skillbase/skillbase/internal/config"
)

const (
	keyCheckoutUser = "checkout:user:%s"
	keyCheckoutLock = "checkout:lock:%s"
)

// CheckoutLimiter throttles payment-session creation per user. Session
// creation is never retried server-side, so abusive repeat calls just pile
// up unreconciled pending purchases; this caps the rate at the edge.
type CheckoutLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate  float64
	burst int
}

func NewCheckoutLimiter(cfg config.Config) (*CheckoutLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.CheckoutRate <= 0 || limitCfg.CheckoutBurst <= 0 {
		return nil, errors.New("checkout rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &CheckoutLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.CheckoutRate,
		burst:   limitCfg.CheckoutBurst,
	}, nil
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *CheckoutLimiter) AllowUser(ctx context.Context, userID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutUser, strings.TrimSpace(userID)), l.rate, l.burst)
}

const checkoutLockTTL = 15 * time.Second

// LockUser takes a short single-flight lock so one user cannot open
// concurrent checkout sessions. The returned func releases the lock;
// it is a no-op when limiting is disabled.
func (l *CheckoutLimiter) LockUser(ctx context.Context, userID string) (func(), bool, error) {
	if !l.Enabled() {
		return func() {}, true, nil
	}
	return l.locker.Acquire(ctx, fmt.Sprintf(keyCheckoutLock, strings.TrimSpace(userID)), checkoutLockTTL)
}
