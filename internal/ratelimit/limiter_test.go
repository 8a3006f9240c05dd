package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/reelacademy/ra-lms/internal/ratelimit"
	"gopkg.in/yaml.v3"
)

func newLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return ratelimit.NewLimiter(rdb, "salt")
}

func TestCheck_AllowsUnderLimit(t *testing.T) {
	l := newLimiter(t)
	cfg := ratelimit.LimitConfig{Rate: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		d, err := l.Check(context.Background(), ratelimit.ScopeIP, "h1", cfg)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	d, err := l.Check(context.Background(), ratelimit.ScopeIP, "h1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Error("Fourth request should be blocked")
	}
	if d.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", d.Remaining)
	}
	if d.RetryAfter != 60 {
		t.Errorf("Expected RetryAfter 60, got %d", d.RetryAfter)
	}
}

func TestCheck_ScopesAreIndependent(t *testing.T) {
	l := newLimiter(t)
	cfg := ratelimit.LimitConfig{Rate: 1, Window: time.Minute}

	d, _ := l.Check(context.Background(), ratelimit.ScopeIP, "h1", cfg)
	if !d.Allowed {
		t.Fatal("First hit should pass")
	}
	d, _ = l.Check(context.Background(), ratelimit.ScopeIP, "h1", cfg)
	if d.Allowed {
		t.Fatal("Second hit on same id should be blocked")
	}

	// Different id, and different scope with same id, are untouched.
	d, _ = l.Check(context.Background(), ratelimit.ScopeIP, "h2", cfg)
	if !d.Allowed {
		t.Error("Other id should have its own window")
	}
	d, _ = l.Check(context.Background(), ratelimit.ScopeEndpoint, "h1", cfg)
	if !d.Allowed {
		t.Error("Other scope should have its own window")
	}
}

func TestCheck_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	l := ratelimit.NewLimiter(redis.NewClient(&redis.Options{Addr: addr}), "salt")
	_, err = l.Check(context.Background(), ratelimit.ScopeIP, "h1", ratelimit.LimitConfig{Rate: 1, Window: time.Minute})
	if !errors.Is(err, ratelimit.ErrRedisUnavailable) {
		t.Errorf("Expected ErrRedisUnavailable, got %v", err)
	}
}

func TestHashIP(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	a := ratelimit.NewLimiter(rdb, "salt-a")
	b := ratelimit.NewLimiter(rdb, "salt-b")

	h1 := a.HashIP("203.0.113.9")
	if h1 != a.HashIP("203.0.113.9") {
		t.Error("HashIP must be stable")
	}
	if len(h1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(h1))
	}
	if h1 == "203.0.113.9" {
		t.Error("Raw IP must never appear")
	}
	if h1 == b.HashIP("203.0.113.9") {
		t.Error("Different salts must produce different hashes")
	}
}

func TestLimitConfig_YAMLWindow(t *testing.T) {
	var cfg ratelimit.LimitConfig
	if err := yaml.Unmarshal([]byte("rate: 30\nwindow: 1m\n"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Rate != 30 || cfg.Window != time.Minute {
		t.Errorf("Expected 30/1m, got %d/%v", cfg.Rate, cfg.Window)
	}

	if err := yaml.Unmarshal([]byte("rate: 1\nwindow: soon\n"), &cfg); err == nil {
		t.Error("Bad window string should fail to decode")
	}
}
