package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/skillbase/skillbase/internal/config"
)

func TestDisabledLimiterPassesEverything(t *testing.T) {
	ctx := context.Background()

	limiter, err := NewCheckoutLimiter(config.Config{})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if limiter != nil {
		t.Fatalf("disabled config should yield a nil limiter")
	}

	allowed, err := limiter.AllowUser(ctx, "42")
	if err != nil || !allowed {
		t.Fatalf("nil limiter should allow, got allowed=%v err=%v", allowed, err)
	}

	release, ok, err := limiter.LockUser(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("nil limiter should lock, got ok=%v err=%v", ok, err)
	}
	release()
}

func TestNewCheckoutLimiterValidatesConfig(t *testing.T) {
	cases := map[string]config.RateLimitConfig{
		"missing addr": {Enabled: true, CheckoutRate: 1, CheckoutBurst: 5},
		"zero rate":    {Enabled: true, RedisAddr: "localhost:6379", CheckoutRate: 0, CheckoutBurst: 5},
		"zero burst":   {Enabled: true, RedisAddr: "localhost:6379", CheckoutRate: 1, CheckoutBurst: 0},
	}
	for name, rl := range cases {
		if _, err := NewCheckoutLimiter(config.Config{RateLimit: rl}); err == nil {
			t.Fatalf("%s: expected config error", name)
		}
	}
}

func TestLockerAcquireValidatesInput(t *testing.T) {
	ctx := context.Background()

	var nilLocker *Locker
	if _, ok, err := nilLocker.Acquire(ctx, "k", time.Second); ok || err == nil {
		t.Fatalf("nil locker must refuse, got ok=%v err=%v", ok, err)
	}
	if NewLocker(nil) != nil {
		t.Fatalf("nil client should yield a nil locker")
	}
}
