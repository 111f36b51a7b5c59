package services

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	entry := &CacheEntry{
		Key:       "feed",
		Data:      []byte(`["a","b"]`),
		Timestamp: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.Set(entry); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := store.Get("feed")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got.Data) != `["a","b"]` {
		t.Errorf("data = %q", got.Data)
	}
	// Millisecond precision survives the round trip
	if got.ExpiresAt.UnixMilli() != entry.ExpiresAt.UnixMilli() {
		t.Errorf("expires_at = %v, want %v", got.ExpiresAt, entry.ExpiresAt)
	}

	if _, ok, err := store.Get("missing"); ok || err != nil {
		t.Errorf("missing key: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreSetOverwrites(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	for _, data := range []string{`"v1"`, `"v2"`} {
		err := store.Set(&CacheEntry{Key: "feed", Data: []byte(data), Timestamp: now, ExpiresAt: now.Add(time.Hour)})
		if err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	got, _, _ := store.Get("feed")
	if string(got.Data) != `"v2"` {
		t.Errorf("expected last write to win, got %q", got.Data)
	}
	if n, _ := store.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSQLiteStoreGetReturnsExpired(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	err := store.Set(&CacheEntry{
		Key: "feed", Data: []byte(`"old"`),
		Timestamp: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	// The offline path serves entries of any age; Get must not filter
	got, ok, err := store.Get("feed")
	if err != nil || !ok {
		t.Fatalf("expected expired entry to be returned: ok=%v err=%v", ok, err)
	}
	if !got.Expired(now) {
		t.Error("entry should report expired")
	}
}

func TestSQLiteStoreInvalidateAndClear(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	for _, key := range []string{"a", "b", "c"} {
		store.Set(&CacheEntry{Key: key, Data: []byte(`1`), Timestamp: now, ExpiresAt: now.Add(time.Hour)})
	}

	if err := store.Invalidate("b"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := store.Get("b"); ok {
		t.Error("invalidated key still present")
	}
	if n, _ := store.Count(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := store.Count(); n != 0 {
		t.Errorf("count after clear = %d", n)
	}
}

func TestSQLiteStorePurgeExpired(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	store.Set(&CacheEntry{Key: "live", Data: []byte(`1`), Timestamp: now, ExpiresAt: now.Add(time.Hour)})
	store.Set(&CacheEntry{Key: "dead", Data: []byte(`1`), Timestamp: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})

	n, err := store.PurgeExpired(now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, ok, _ := store.Get("live"); !ok {
		t.Error("live entry purged")
	}
	if _, ok, _ := store.Get("dead"); ok {
		t.Error("dead entry survived")
	}
}
