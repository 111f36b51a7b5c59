package jobs

import (
	"context"
	"log"

	"bountyboard/internal/database"
	"bountyboard/internal/services"
)

// EscrowReconcileJob refunds escrows still held against cancelled or
// deleted bounties. Cancellation refunds normally happen inline; this
// job catches the ones lost to a crash between the two writes.
type EscrowReconcileJob struct {
	db     *database.DB
	escrow *services.EscrowService
}

// NewEscrowReconcileJob creates the reconcile job.
func NewEscrowReconcileJob(db *database.DB, escrow *services.EscrowService) *EscrowReconcileJob {
	return &EscrowReconcileJob{db: db, escrow: escrow}
}

func (j *EscrowReconcileJob) Name() string { return "escrow-reconcile" }

// Run refunds orphaned holds one by one. A single failed refund is
// logged and retried on the next run.
func (j *EscrowReconcileJob) Run(ctx context.Context) error {
	rows, err := j.db.QueryContext(ctx,
		`SELECT e.id FROM escrows e
		 JOIN bounties b ON b.id = e.bounty_id
		 WHERE e.status = 'held'
		   AND (b.deleted = TRUE OR b.status = 'cancelled')`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := j.escrow.RefundEscrow(ctx, id); err != nil {
			log.Printf("⚠️  [ESCROW-RECONCILE] Failed to refund escrow %s: %v", id, err)
			continue
		}
		log.Printf("↩️  [ESCROW-RECONCILE] Refunded orphaned escrow %s", id)
	}
	return nil
}
