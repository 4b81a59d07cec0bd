package demoapi

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Integration coverage for the Redis-backed IP window. Requires a reachable
// Redis; set TML_REDIS_URL to run, e.g.:
//
//	TML_REDIS_URL=redis://127.0.0.1:6379/0 go test ./cmd/internal/demo/api/...
func mustRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	raw := os.Getenv("TML_REDIS_URL")
	if raw == "" {
		t.Skip("TML_REDIS_URL not set; skipping Redis integration test")
	}
	opts, err := goredis.ParseURL(raw)
	if err != nil {
		t.Fatalf("parse TML_REDIS_URL: %v", err)
	}

	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	return client
}

func TestRedisIPLimiter_Window(t *testing.T) {
	client := mustRedisClient(t)
	ctx := context.Background()

	prefix := fmt.Sprintf("test:ipwindow:%d:", time.Now().UnixNano())
	limiter := NewRedisIPLimiter(client, 3, time.Hour, WithKeyPrefix(prefix))

	ip := "198.51.100.40"
	t.Cleanup(func() { _ = client.Del(context.Background(), prefix+ip).Err() })

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, ip)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("Allow #%d denied", i)
		}
		if res.Remaining != 3-i {
			t.Fatalf("Allow #%d remaining = %d, want %d", i, res.Remaining, 3-i)
		}
	}

	res, err := limiter.Allow(ctx, ip)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("fourth request allowed, want denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", res.Remaining)
	}
	if res.ResetIn <= 0 || res.ResetIn > time.Hour {
		t.Fatalf("ResetIn = %v, want within (0, 1h]", res.ResetIn)
	}
}

func TestRedisIPLimiter_IndependentIPs(t *testing.T) {
	client := mustRedisClient(t)
	ctx := context.Background()

	prefix := fmt.Sprintf("test:ipwindow:%d:", time.Now().UnixNano())
	limiter := NewRedisIPLimiter(client, 1, time.Hour, WithKeyPrefix(prefix))

	t.Cleanup(func() {
		_ = client.Del(context.Background(), prefix+"198.51.100.41", prefix+"198.51.100.42").Err()
	})

	if res, err := limiter.Allow(ctx, "198.51.100.41"); err != nil || !res.Allowed {
		t.Fatalf("first ip: res=%+v err=%v", res, err)
	}
	if res, err := limiter.Allow(ctx, "198.51.100.41"); err != nil || res.Allowed {
		t.Fatalf("first ip second hit: res=%+v err=%v", res, err)
	}
	if res, err := limiter.Allow(ctx, "198.51.100.42"); err != nil || !res.Allowed {
		t.Fatalf("second ip: res=%+v err=%v", res, err)
	}
}
