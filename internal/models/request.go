package models

import "time"

// Request statuses. There is no rejected state: a rejected or competing
// request is simply deleted.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
)

// BountyRequest is a hunter's application to work a bounty.
type BountyRequest struct {
	ID        ID        `json:"id"`
	BountyID  ID        `json:"bounty_id"`
	HunterID  ID        `json:"hunter_id"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyRequest is the payload for filing a request against a bounty.
type ApplyRequest struct {
	BountyID ID     `json:"bounty_id"`
	Message  string `json:"message"`
}

// AcceptResult is what a successful acceptance hands back to the
// caller. ConversationID and EscrowID are empty when those steps were
// skipped or failed; the acceptance itself still stands.
type AcceptResult struct {
	Request        *BountyRequest `json:"request"`
	Bounty         *Bounty        `json:"bounty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	EscrowID       string         `json:"escrow_id,omitempty"`
	Paid           bool           `json:"paid"`
}
