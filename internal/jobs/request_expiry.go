package jobs

import (
	"context"
	"log"

	"bountyboard/internal/database"
)

// RequestExpiryJob deletes pending requests whose bounty can no longer
// be accepted (archived, deleted or closed). Keeps the pending lists
// from accumulating dead entries.
type RequestExpiryJob struct {
	db *database.DB
}

// NewRequestExpiryJob creates the expiry job.
func NewRequestExpiryJob(db *database.DB) *RequestExpiryJob {
	return &RequestExpiryJob{db: db}
}

func (j *RequestExpiryJob) Name() string { return "request-expiry" }

// Run removes pending requests on dead bounties.
func (j *RequestExpiryJob) Run(ctx context.Context) error {
	res, err := j.db.ExecContext(ctx,
		`DELETE r FROM bounty_requests r
		 JOIN bounties b ON b.id = r.bounty_id
		 WHERE r.status = 'pending'
		   AND (b.deleted = TRUE OR b.archived = TRUE OR b.status <> 'open')`)
	if err != nil {
		return err
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("🧹 [REQUEST-EXPIRY] Removed %d stale pending requests", n)
	}
	return nil
}
