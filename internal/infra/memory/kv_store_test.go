package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

func TestKVStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore()

	if _, err := store.Get(ctx, "checkpoint:app-1"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := store.Set(ctx, "checkpoint:app-1", []byte("v1"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "checkpoint:app-1")
	if err != nil || string(got) != "v1" {
		t.Fatalf("expected v1, got %q err=%v", got, err)
	}

	if err := store.Delete(ctx, "checkpoint:app-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "checkpoint:app-1"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected key removed, got %v", err)
	}
}

func TestKVStoreExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store := NewKVStoreWithClock(func() time.Time { return now })

	if err := store.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(59 * time.Minute)
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("expected live entry, got %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected expired entry, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry evicted, len=%d", store.Len())
	}
}
