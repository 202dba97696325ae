package quota

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreIncrementAndPeek(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	count, errPeek := store.Peek(ctx, "k")
	if errPeek != nil || count != 0 {
		t.Fatalf("expected absent key to peek 0, got %d err=%v", count, errPeek)
	}

	for want := int64(1); want <= 3; want++ {
		got, errIncr := store.Increment(ctx, "k")
		if errIncr != nil {
			t.Fatalf("increment: %v", errIncr)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	count, _ = store.Peek(ctx, "k")
	if count != 3 {
		t.Fatalf("expected peek 3, got %d", count)
	}
}

func TestMemoryStoreExpiryResetsToOne(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, errIncr := store.Increment(ctx, "k"); errIncr != nil {
			t.Fatalf("increment: %v", errIncr)
		}
	}
	if errExpire := store.ExpireAfter(ctx, "k", 15*time.Minute); errExpire != nil {
		t.Fatalf("expire: %v", errExpire)
	}

	now = now.Add(16 * time.Minute)

	count, _ := store.Peek(ctx, "k")
	if count != 0 {
		t.Fatalf("expected expired key to peek 0, got %d", count)
	}
	got, errIncr := store.Increment(ctx, "k")
	if errIncr != nil {
		t.Fatalf("increment: %v", errIncr)
	}
	if got != 1 {
		t.Fatalf("expected expired key to restart at 1, got %d", got)
	}
}

func TestMemoryStoreExpireAfterUnknownKey(t *testing.T) {
	store := NewMemoryStore()
	if errExpire := store.ExpireAfter(context.Background(), "missing", time.Minute); errExpire != nil {
		t.Fatalf("expected no error for unknown key, got %v", errExpire)
	}
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, errIncr := store.Increment(ctx, "k"); errIncr != nil {
					t.Errorf("increment: %v", errIncr)
				}
			}
		}()
	}
	wg.Wait()

	count, _ := store.Peek(ctx, "k")
	if count != workers*perWorker {
		t.Fatalf("expected %d increments, got %d", workers*perWorker, count)
	}
}
