package jobs

import (
	"context"
	"log"
	"time"

	"bountyboard/internal/services"
)

// CacheCleanupJob purges expired rows from the durable cache tier.
// Expired entries are still servable on the offline path until they are
// purged, so the retention window here doubles as the offline horizon.
type CacheCleanupJob struct {
	store services.DurableStore
}

// NewCacheCleanupJob creates the cleanup job.
func NewCacheCleanupJob(store services.DurableStore) *CacheCleanupJob {
	return &CacheCleanupJob{store: store}
}

func (j *CacheCleanupJob) Name() string { return "cache-cleanup" }

// Run deletes durable cache entries past their expiry.
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	n, err := j.store.PurgeExpired(time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("🧹 [CACHE-CLEANUP] Purged %d expired cache entries", n)
	}
	return nil
}
