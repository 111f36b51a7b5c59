package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrOfflineNoCache is the cache layer's only hard failure: the device
// is offline and nothing was ever cached for the key. Every other path
// degrades to stale-but-present data.
var ErrOfflineNoCache = errors.New("offline and no cached data available")

// FetchFunc produces the value for a key. The result must already be
// encoded (JSON) so both tiers store the same bytes.
type FetchFunc func(ctx context.Context) ([]byte, error)

// FetchOptions tune one FetchWithCache call.
type FetchOptions struct {
	TTL          time.Duration // 0 means the service default
	ForceRefresh bool
}

// OnlineSource reports the current network state.
type OnlineSource interface {
	Online() bool
}

// CacheStats is the diagnostics snapshot; no correctness dependency.
type CacheStats struct {
	MemoryEntries  int  `json:"memory_entries"`
	DurableEntries int  `json:"durable_entries"`
	Online         bool `json:"online"`
}

// CacheService is a key-addressed stale-while-revalidate store. Fresh
// enough data is served from the in-memory tier without touching the
// network; a background revalidation keeps it warm. The durable tier
// survives restarts and feeds the offline path.
type CacheService struct {
	memory     *gocache.Cache
	durable    DurableStore
	network    OnlineSource
	defaultTTL time.Duration

	mu       sync.Mutex
	inflight map[string]bool // keys with a background revalidation running
}

// NewCacheService creates the cache service over the two tiers.
func NewCacheService(durable DurableStore, network OnlineSource, defaultTTL time.Duration) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &CacheService{
		memory:     gocache.New(defaultTTL, 10*time.Minute),
		durable:    durable,
		network:    network,
		defaultTTL: defaultTTL,
		inflight:   make(map[string]bool),
	}
}

// FetchWithCache returns the value for key, preferring cached data.
//
// Offline (and not forcing): any cached value wins regardless of age;
// an empty cache is the only failure. Online with a fresh entry: the
// entry is returned immediately and one background revalidation is
// kicked off. Otherwise the fetch runs synchronously; on failure any
// cached value (even expired) is the last resort.
func (s *CacheService) FetchWithCache(ctx context.Context, key string, fetch FetchFunc, opts FetchOptions) ([]byte, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()

	if !s.network.Online() && !opts.ForceRefresh {
		if entry, ok := s.lookup(key); ok {
			GetMetrics().RecordCacheHit("offline")
			return entry.Data, nil
		}
		GetMetrics().RecordCacheMiss()
		return nil, fmt.Errorf("%w (key: %s)", ErrOfflineNoCache, key)
	}

	if !opts.ForceRefresh {
		if entry, ok := s.lookup(key); ok && !entry.Expired(now) {
			GetMetrics().RecordCacheHit("fresh")
			s.revalidateAsync(key, fetch, ttl)
			return entry.Data, nil
		}
	}

	// Forced refresh, or no valid entry: fetch synchronously
	data, err := fetch(ctx)
	if err != nil {
		// Last resort: serve whatever we have, even expired
		if entry, ok := s.lookup(key); ok {
			log.Printf("⚠️  [CACHE] Fetch failed for %s, serving stale data: %v", key, err)
			GetMetrics().RecordCacheHit("stale_fallback")
			return entry.Data, nil
		}
		GetMetrics().RecordCacheMiss()
		return nil, err
	}

	s.commit(key, data, ttl)
	return data, nil
}

// Invalidate removes a key from both tiers.
func (s *CacheService) Invalidate(key string) {
	s.memory.Delete(key)
	if err := s.durable.Invalidate(key); err != nil {
		log.Printf("⚠️  [CACHE] Failed to invalidate %s in durable tier: %v", key, err)
	}
}

// ClearAll removes every entry from both tiers.
func (s *CacheService) ClearAll() {
	s.memory.Flush()
	if err := s.durable.Clear(); err != nil {
		log.Printf("⚠️  [CACHE] Failed to clear durable tier: %v", err)
	}
	log.Println("🗑️  [CACHE] Cleared all entries")
}

// Stats reports tier sizes and the online flag.
func (s *CacheService) Stats() CacheStats {
	durableCount, err := s.durable.Count()
	if err != nil {
		log.Printf("⚠️  [CACHE] Failed to count durable entries: %v", err)
	}
	return CacheStats{
		MemoryEntries:  s.memory.ItemCount(),
		DurableEntries: durableCount,
		Online:         s.network.Online(),
	}
}

// lookup reads through the tiers: memory first, then durable. A durable
// hit repopulates the memory tier.
func (s *CacheService) lookup(key string) (*CacheEntry, bool) {
	if v, found := s.memory.Get(key); found {
		if entry, ok := v.(*CacheEntry); ok {
			return entry, true
		}
	}

	entry, found, err := s.durable.Get(key)
	if err != nil {
		log.Printf("⚠️  [CACHE] Durable tier read failed for %s: %v", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	s.memory.Set(key, entry, gocache.NoExpiration)
	return entry, true
}

// commit writes a fresh entry to both tiers. The durable tier is
// written first so it is never behind what the memory tier serves.
func (s *CacheService) commit(key string, data []byte, ttl time.Duration) {
	now := time.Now()
	entry := &CacheEntry{
		Key:       key,
		Data:      data,
		Timestamp: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.durable.Set(entry); err != nil {
		log.Printf("⚠️  [CACHE] Durable tier write failed for %s: %v", key, err)
	}
	s.memory.Set(key, entry, gocache.NoExpiration)
}

// revalidateAsync refreshes a key in the background. At most one
// revalidation runs per key; errors are logged and metered, never
// surfaced, and the stale entry silently remains in effect.
func (s *CacheService) revalidateAsync(key string, fetch FetchFunc, ttl time.Duration) {
	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		return
	}
	s.inflight[key] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data, err := fetch(ctx)
		if err != nil {
			log.Printf("⚠️  [CACHE] Background refresh failed for %s: %v", key, err)
			GetMetrics().RecordCacheRevalidation("error")
			return
		}

		s.commit(key, data, ttl)
		GetMetrics().RecordCacheRevalidation("ok")
	}()
}
