package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewLoginLimiter(rdb, cfg), mr
}

func TestLoginLimiterBlocksAfterBudget(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		if err := limiter.Check(ctx, "a@x.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
		if err := limiter.RecordFailure(ctx, "a@x.com"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := limiter.Check(ctx, "a@x.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := limiter.Check(ctx, "b@x.com"); err != nil {
		t.Fatalf("expected other email to be unaffected, got %v", err)
	}
}

func TestLoginLimiterCooldownExpires(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})

	if err := limiter.RecordFailure(ctx, "a@x.com"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if err := limiter.Check(ctx, "a@x.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := limiter.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected budget to reset after cooldown, got %v", err)
	}
}

func TestLoginLimiterReset(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})

	_ = limiter.RecordFailure(ctx, "a@x.com")
	if err := limiter.Reset(ctx, "a@x.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := limiter.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected reset budget, got %v", err)
	}
}

func TestLoginLimiterRedisDown(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, Config{MaxAttempts: 1, Cooldown: time.Minute})
	mr.Close()

	if err := limiter.Check(ctx, "a@x.com"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
