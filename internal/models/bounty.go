package models

import "time"

// Bounty statuses.
const (
	BountyStatusOpen       = "open"
	BountyStatusInProgress = "in_progress"
	BountyStatusCompleted  = "completed"
	BountyStatusCancelled  = "cancelled"
)

// Bounty is a posted gig. Paid bounties carry a positive amount and
// get an escrow hold at acceptance.
type Bounty struct {
	ID          ID         `json:"id"`
	PosterID    ID         `json:"poster_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	AcceptedBy  ID         `json:"accepted_by,omitempty"`
	Archived    bool       `json:"archived"`
	Deleted     bool       `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsPaid reports whether accepting this bounty moves money.
func (b *Bounty) IsPaid() bool {
	return b.AmountCents > 0
}

// CreateBountyRequest is the payload for posting a new bounty.
type CreateBountyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

// UpdateBountyRequest is a partial edit. Nil fields are left untouched;
// the amount is only editable while the bounty is still open.
type UpdateBountyRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	AmountCents *int64  `json:"amount_cents"`
	Archived    *bool   `json:"archived"`
}
