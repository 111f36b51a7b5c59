package services

import (
	"sync"

	"bountyboard/internal/models"
)

// ProfileListener receives profile updates. The current value is
// delivered synchronously at subscribe time.
type ProfileListener func(profile *models.Profile)

// ProfileStore is an observable store for the signed-in profile. A
// listener may publish a new profile from inside its own notification;
// such updates are queued and delivered after the current fan-out
// finishes rather than re-entering it.
type ProfileStore struct {
	mu        sync.Mutex
	profile   *models.Profile
	listeners map[int]ProfileListener
	nextID    int

	notifying bool
	pending   []*models.Profile
}

// NewProfileStore creates an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		listeners: make(map[int]ProfileListener),
	}
}

// Current returns the stored profile, or nil when signed out.
func (s *ProfileStore) Current() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Subscribe registers a listener and synchronously delivers the current
// value if one exists. The returned function removes the listener.
func (s *ProfileStore) Subscribe(fn ProfileListener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.profile
	s.mu.Unlock()

	if current != nil {
		fn(current)
	}

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Update stores a new profile and notifies all listeners. Updates
// published while a notification is in progress are queued, preserving
// order, and drained before Update returns to the outermost caller.
func (s *ProfileStore) Update(profile *models.Profile) {
	s.mu.Lock()
	if s.notifying {
		s.pending = append(s.pending, profile)
		s.mu.Unlock()
		return
	}
	s.notifying = true
	s.mu.Unlock()

	next := profile
	for {
		s.mu.Lock()
		s.profile = next
		listeners := make([]ProfileListener, 0, len(s.listeners))
		for _, fn := range s.listeners {
			listeners = append(listeners, fn)
		}
		s.mu.Unlock()

		for _, fn := range listeners {
			fn(next)
		}

		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.mu.Unlock()
			return
		}
		next = s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
	}
}

// Clear drops the stored profile (sign-out) without notifying.
func (s *ProfileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	s.pending = nil
}
