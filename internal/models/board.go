package models

// BoardView is the per-user view state the acceptance coordinator keeps
// consistent: pending requests on the user's postings, the user's own
// postings, and bounties the user is hunting. The coordinator patches it
// optimistically and the reload path replaces it wholesale with the
// authoritative server state.
type BoardView struct {
	Pending    []BountyRequest `json:"pending"`
	MyPostings []Bounty        `json:"my_postings"`
	InProgress []Bounty        `json:"in_progress"`
}

// Clone returns a deep copy so callers can hand the view to a client
// without racing later patches.
func (v *BoardView) Clone() *BoardView {
	out := &BoardView{
		Pending:    make([]BountyRequest, len(v.Pending)),
		MyPostings: make([]Bounty, len(v.MyPostings)),
		InProgress: make([]Bounty, len(v.InProgress)),
	}
	copy(out.Pending, v.Pending)
	copy(out.MyPostings, v.MyPostings)
	copy(out.InProgress, v.InProgress)
	return out
}
