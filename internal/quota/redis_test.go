package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, errRun := miniredis.Run()
	if errRun != nil {
		t.Fatalf("start miniredis: %v", errRun)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "authgate")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreIncrementAndPeek(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	got, errIncr := store.Increment(ctx, "k")
	if errIncr != nil || got != 1 {
		t.Fatalf("expected first increment 1, got %d err=%v", got, errIncr)
	}
	got, _ = store.Increment(ctx, "k")
	if got != 2 {
		t.Fatalf("expected second increment 2, got %d", got)
	}

	count, errPeek := store.Peek(ctx, "k")
	if errPeek != nil || count != 2 {
		t.Fatalf("expected peek 2, got %d err=%v", count, errPeek)
	}
	count, _ = store.Peek(ctx, "absent")
	if count != 0 {
		t.Fatalf("expected absent key to peek 0, got %d", count)
	}
}

func TestRedisStoreWindowExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	if _, errIncr := store.Increment(ctx, "k"); errIncr != nil {
		t.Fatalf("increment: %v", errIncr)
	}
	if errExpire := store.ExpireAfter(ctx, "k", 15*time.Minute); errExpire != nil {
		t.Fatalf("expire: %v", errExpire)
	}

	mr.FastForward(16 * time.Minute)

	count, _ := store.Peek(ctx, "k")
	if count != 0 {
		t.Fatalf("expected expired key to peek 0, got %d", count)
	}
	got, errIncr := store.Increment(ctx, "k")
	if errIncr != nil || got != 1 {
		t.Fatalf("expected expired key to restart at 1, got %d err=%v", got, errIncr)
	}
}

func TestNewFallsBackWithoutRedis(t *testing.T) {
	store := New(context.Background(), Config{})
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store when no redis configured, got %T", store)
	}

	store = New(context.Background(), Config{Addr: "127.0.0.1:1"})
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected fallback to memory store on unreachable redis, got %T", store)
	}
}

func TestNewSelectsRedisWhenReachable(t *testing.T) {
	mr, errRun := miniredis.Run()
	if errRun != nil {
		t.Fatalf("start miniredis: %v", errRun)
	}
	t.Cleanup(mr.Close)

	store := New(context.Background(), Config{Addr: mr.Addr()})
	redisStore, ok := store.(*RedisStore)
	if !ok {
		t.Fatalf("expected redis store, got %T", store)
	}
	_ = redisStore.Close()
}
