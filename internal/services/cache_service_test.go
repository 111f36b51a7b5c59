package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memDurableStore struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry

	getCalls int
	setCalls int
	getErr   error
	setErr   error
}

func newMemDurableStore() *memDurableStore {
	return &memDurableStore{entries: make(map[string]*CacheEntry)}
}

func (m *memDurableStore) Get(key string) (*CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := *entry
	return &cp, true, nil
}

func (m *memDurableStore) Set(entry *CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	cp := *entry
	m.entries[entry.Key] = &cp
	return nil
}

func (m *memDurableStore) Invalidate(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memDurableStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*CacheEntry)
	return nil
}

func (m *memDurableStore) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *memDurableStore) PurgeExpired(now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *memDurableStore) Close() error { return nil }

func (m *memDurableStore) seed(key string, data []byte, age, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	written := time.Now().Add(-age)
	m.entries[key] = &CacheEntry{
		Key:       key,
		Data:      data,
		Timestamp: written,
		ExpiresAt: written.Add(ttl),
	}
}

type fakeNetwork struct {
	online atomic.Bool
}

func (f *fakeNetwork) Online() bool { return f.online.Load() }

func newCacheFixture(online bool) (*CacheService, *memDurableStore, *fakeNetwork) {
	store := newMemDurableStore()
	network := &fakeNetwork{}
	network.online.Store(online)
	return NewCacheService(store, network, time.Hour), store, network
}

func countingFetch(calls *atomic.Int32, data []byte, err error) FetchFunc {
	return func(_ context.Context) ([]byte, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func TestFetchWithCacheOfflineServesAnyAge(t *testing.T) {
	svc, store, _ := newCacheFixture(false)

	// Expired long ago; offline still serves it
	store.seed("feed", []byte(`["old"]`), 48*time.Hour, time.Hour)

	var calls atomic.Int32
	data, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, nil, errors.New("must not be called")), FetchOptions{})
	if err != nil {
		t.Fatalf("offline cached fetch failed: %v", err)
	}
	if string(data) != `["old"]` {
		t.Errorf("expected cached bytes, got %q", data)
	}
	if calls.Load() != 0 {
		t.Errorf("fetcher must not run offline, got %d calls", calls.Load())
	}
}

func TestFetchWithCacheOfflineEmptyFails(t *testing.T) {
	svc, _, _ := newCacheFixture(false)

	var calls atomic.Int32
	_, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, []byte(`[]`), nil), FetchOptions{})
	if !errors.Is(err, ErrOfflineNoCache) {
		t.Fatalf("expected ErrOfflineNoCache, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("fetcher must not run offline, got %d calls", calls.Load())
	}
}

func TestFetchWithCacheFreshHitRevalidatesOnce(t *testing.T) {
	svc, store, _ := newCacheFixture(true)
	store.seed("feed", []byte(`["cached"]`), time.Minute, time.Hour)

	var calls atomic.Int32
	release := make(chan struct{})
	done := make(chan struct{})
	fetch := func(_ context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		close(done)
		return []byte(`["fresh"]`), nil
	}

	// Both calls serve the cached bytes; only one revalidation starts
	// while the first is still in flight.
	for i := 0; i < 2; i++ {
		data, err := svc.FetchWithCache(context.Background(), "feed", fetch, FetchOptions{})
		if err != nil {
			t.Fatalf("fresh hit %d failed: %v", i, err)
		}
		if string(data) != `["cached"]` {
			t.Errorf("fresh hit %d served %q, want cached bytes", i, data)
		}
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never completed")
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 deduped revalidation, got %d", calls.Load())
	}

	// The revalidated bytes land in both tiers
	deadline := time.Now().Add(2 * time.Second)
	for {
		entry, ok, _ := store.Get("feed")
		if ok && string(entry.Data) == `["fresh"]` {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("durable tier never received revalidated bytes")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFetchWithCacheForceRefreshFetchesSync(t *testing.T) {
	svc, store, _ := newCacheFixture(true)
	store.seed("feed", []byte(`["cached"]`), time.Minute, time.Hour)

	var calls atomic.Int32
	data, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, []byte(`["forced"]`), nil), FetchOptions{ForceRefresh: true})
	if err != nil {
		t.Fatalf("forced fetch failed: %v", err)
	}
	if string(data) != `["forced"]` {
		t.Errorf("expected fetched bytes, got %q", data)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 synchronous fetch, got %d", calls.Load())
	}
}

func TestFetchWithCacheStaleFallbackOnFetchError(t *testing.T) {
	svc, store, _ := newCacheFixture(true)

	// Expired entry: the sync path runs, fails, and falls back to it
	store.seed("feed", []byte(`["stale"]`), 2*time.Hour, time.Hour)

	var calls atomic.Int32
	data, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, nil, errors.New("backend down")), FetchOptions{})
	if err != nil {
		t.Fatalf("expected stale fallback, got error %v", err)
	}
	if string(data) != `["stale"]` {
		t.Errorf("expected stale bytes, got %q", data)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 fetch attempt, got %d", calls.Load())
	}
}

func TestFetchWithCacheErrorWithEmptyCache(t *testing.T) {
	svc, _, _ := newCacheFixture(true)

	fetchErr := errors.New("backend down")
	var calls atomic.Int32
	_, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, nil, fetchErr), FetchOptions{})
	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected the fetch error, got %v", err)
	}
}

func TestFetchWithCacheCommitsBothTiers(t *testing.T) {
	svc, store, network := newCacheFixture(true)

	var calls atomic.Int32
	if _, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, []byte(`["v1"]`), nil), FetchOptions{}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	entry, ok, err := store.Get("feed")
	if err != nil || !ok {
		t.Fatalf("durable tier missing entry: ok=%v err=%v", ok, err)
	}
	if string(entry.Data) != `["v1"]` {
		t.Errorf("durable tier holds %q, want fetched bytes", entry.Data)
	}

	// Offline read now serves from cache without fetching
	network.online.Store(false)
	data, err := svc.FetchWithCache(context.Background(), "feed",
		countingFetch(&calls, nil, errors.New("must not run")), FetchOptions{})
	if err != nil {
		t.Fatalf("offline read-back failed: %v", err)
	}
	if string(data) != `["v1"]` {
		t.Errorf("offline read-back got %q", data)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 fetch overall, got %d", calls.Load())
	}
}

func TestFetchWithCacheDurableHitWarmsMemory(t *testing.T) {
	svc, store, _ := newCacheFixture(false)
	store.seed("feed", []byte(`["persisted"]`), time.Minute, time.Hour)

	for i := 0; i < 3; i++ {
		if _, err := svc.FetchWithCache(context.Background(), "feed", nil, FetchOptions{}); err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
	}

	// Only the first lookup touches the durable tier
	store.mu.Lock()
	gets := store.getCalls
	store.mu.Unlock()
	if gets != 1 {
		t.Errorf("expected 1 durable read, got %d", gets)
	}
}

func TestInvalidateRemovesBothTiers(t *testing.T) {
	svc, store, _ := newCacheFixture(false)
	store.seed("feed", []byte(`["cached"]`), time.Minute, time.Hour)

	// Warm the memory tier, then invalidate
	if _, err := svc.FetchWithCache(context.Background(), "feed", nil, FetchOptions{}); err != nil {
		t.Fatalf("warm-up read failed: %v", err)
	}
	svc.Invalidate("feed")

	if _, err := svc.FetchWithCache(context.Background(), "feed", nil, FetchOptions{}); !errors.Is(err, ErrOfflineNoCache) {
		t.Errorf("expected ErrOfflineNoCache after invalidate, got %v", err)
	}
}

func TestClearAllAndStats(t *testing.T) {
	svc, store, _ := newCacheFixture(true)
	store.seed("a", []byte(`1`), time.Minute, time.Hour)
	store.seed("b", []byte(`2`), time.Minute, time.Hour)

	// Warm memory with one of them; the failing revalidation never
	// commits, so tier counts stay put.
	var calls atomic.Int32
	if _, err := svc.FetchWithCache(context.Background(), "a",
		countingFetch(&calls, nil, errors.New("backend down")), FetchOptions{}); err != nil {
		t.Fatalf("warm-up read failed: %v", err)
	}

	stats := svc.Stats()
	if stats.DurableEntries != 2 {
		t.Errorf("expected 2 durable entries, got %d", stats.DurableEntries)
	}
	if stats.MemoryEntries != 1 {
		t.Errorf("expected 1 memory entry, got %d", stats.MemoryEntries)
	}
	if !stats.Online {
		t.Error("expected online stats")
	}

	svc.ClearAll()
	stats = svc.Stats()
	if stats.MemoryEntries != 0 || stats.DurableEntries != 0 {
		t.Errorf("expected empty tiers after clear, got %+v", stats)
	}
}
