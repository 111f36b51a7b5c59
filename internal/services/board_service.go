package services

import (
	"sync"

	"bountyboard/internal/models"
)

// BoardService keeps the per-user board view: pending requests on the
// user's postings, the user's own postings, and the bounties the user
// is hunting. The acceptance coordinator patches a view optimistically
// and replaces it wholesale on reload; nothing else mutates it.
type BoardService struct {
	mu    sync.RWMutex
	views map[string]*models.BoardView // keyed by canonical user id
}

// NewBoardService creates an empty board service.
func NewBoardService() *BoardService {
	return &BoardService{
		views: make(map[string]*models.BoardView),
	}
}

// Snapshot returns a copy of the user's view.
func (s *BoardService) Snapshot(userID models.ID) *models.BoardView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.views[userID.String()]
	if !ok {
		return &models.BoardView{}
	}
	return view.Clone()
}

// Has reports whether a view is loaded for the user.
func (s *BoardService) Has(userID models.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.views[userID.String()]
	return ok
}

// Replace swaps the user's whole view for authoritative server state.
func (s *BoardService) Replace(userID models.ID, view *models.BoardView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[userID.String()] = view.Clone()
}

// RemovePendingForBounty drops every pending request referencing the
// bounty from the user's pending list.
func (s *BoardService) RemovePendingForBounty(userID, bountyID models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.views[userID.String()]
	if !ok {
		return
	}

	kept := view.Pending[:0]
	for _, req := range view.Pending {
		if !req.BountyID.Equal(bountyID) {
			kept = append(kept, req)
		}
	}
	view.Pending = kept
}

// MarkInProgress flips the bounty to in_progress in the user's postings
// and records the accepted hunter.
func (s *BoardService) MarkInProgress(userID, bountyID, acceptedBy models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.views[userID.String()]
	if !ok {
		return
	}

	for i := range view.MyPostings {
		if view.MyPostings[i].ID.Equal(bountyID) {
			view.MyPostings[i].Status = models.BountyStatusInProgress
			view.MyPostings[i].AcceptedBy = acceptedBy
		}
	}
}

// AddInProgress puts the bounty on the user's in-progress list.
// Repeated reconciliation must not duplicate it.
func (s *BoardService) AddInProgress(userID models.ID, bounty *models.Bounty) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.views[userID.String()]
	if !ok {
		view = &models.BoardView{}
		s.views[userID.String()] = view
	}

	for i := range view.InProgress {
		if view.InProgress[i].ID.Equal(bounty.ID) {
			view.InProgress[i] = *bounty
			return
		}
	}
	view.InProgress = append(view.InProgress, *bounty)
}

// Forget drops a user's view entirely (sign-out).
func (s *BoardService) Forget(userID models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, userID.String())
}
