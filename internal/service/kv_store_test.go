package service

import (
	"context"
	"testing"
	"time"
)

func newMemoryStoreForTest(t *testing.T) (*InMemoryKVStore, *time.Time) {
	t.Helper()
	store := NewInMemoryKVStore()
	t.Cleanup(store.Close)
	now := time.Now()
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryKVStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStoreForTest(t)

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := store.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("get: val=%q ok=%v err=%v", val, ok, err)
	}

	existed, err := store.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("second delete should report missing, existed=%v err=%v", existed, err)
	}
}

func TestInMemoryKVStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, now := newMemoryStoreForTest(t)

	if err := store.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	*now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected key to expire")
	}
	if existed, _ := store.Delete(ctx, "k"); existed {
		t.Fatal("expired key must count as missing on delete")
	}
}

func TestInMemoryKVStoreIncrement(t *testing.T) {
	ctx := context.Background()
	store, now := newMemoryStoreForTest(t)

	for want := int64(1); want <= 3; want++ {
		got, err := store.Increment(ctx, "c", time.Minute)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	// Expiry restarts the count.
	*now = now.Add(2 * time.Minute)
	got, err := store.Increment(ctx, "c", time.Minute)
	if err != nil || got != 1 {
		t.Fatalf("expected fresh count 1 after expiry, got %d err=%v", got, err)
	}
}

func TestInMemoryKVStoreIncrementNonNumeric(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStoreForTest(t)

	if err := store.SetWithTTL(ctx, "c", []byte("not-a-number"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := store.Increment(ctx, "c", time.Minute); err == nil {
		t.Fatal("expected error incrementing non-numeric value")
	}
}

func TestInMemoryKVStoreConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStoreForTest(t)

	const workers = 16
	const perWorker = 50
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < perWorker; j++ {
				if _, err := store.Increment(ctx, "c", time.Minute); err != nil {
					t.Errorf("increment: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	raw, ok, err := store.Get(ctx, "c")
	if err != nil || !ok {
		t.Fatalf("get counter: ok=%v err=%v", ok, err)
	}
	if string(raw) != "800" {
		t.Fatalf("expected 800 after concurrent increments, got %s", raw)
	}
}
