package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
)

func openTestStore(t *testing.T) *KVStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "desk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.Set(ctx, "completion:app-1", []byte(`{"score":75}`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "completion:app-1", []byte(`{"score":80}`), 0); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Get(ctx, "completion:app-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"score":80}` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	if err := store.Delete(ctx, "completion:app-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "completion:app-1"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestKVStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	if err := store.Set(ctx, "checkpoint:app-1", []byte("x"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "checkpoint:app-2", []byte("y"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(time.Hour)
	if _, err := store.Get(ctx, "checkpoint:app-1"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected expired entry, got %v", err)
	}
	n, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one swept entry, got %d", n)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
