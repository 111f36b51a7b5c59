package services

import (
	"context"
	"sync"
	"testing"

	"bountyboard/internal/models"
)

type eventRecorder struct {
	mu       sync.Mutex
	channels []string
	events   []*PubSubEvent
}

func (r *eventRecorder) handle(channel string, event *PubSubEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
	r.events = append(r.events, event)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestPublishToUserDeliversLocally(t *testing.T) {
	// No Redis: the same-instance path must still reach subscribers
	ps := NewPubSubService(nil, "instance-1")

	recorder := &eventRecorder{}
	ps.Subscribe("user:*:events", recorder.handle)

	payload := map[string]interface{}{"bounty_id": "42"}
	if err := ps.PublishToUser(context.Background(), "user-1", models.WSEventRequestAccepted, payload); err != nil {
		t.Fatalf("PublishToUser: %v", err)
	}

	if recorder.count() != 1 {
		t.Fatalf("expected 1 local delivery, got %d", recorder.count())
	}
	if recorder.channels[0] != "user:user-1:events" {
		t.Errorf("channel = %q", recorder.channels[0])
	}
	event := recorder.events[0]
	if event.Type != models.WSEventRequestAccepted || event.UserID != "user-1" {
		t.Errorf("event = %+v", event)
	}
	if event.Payload["bounty_id"] != "42" {
		t.Errorf("payload = %v", event.Payload)
	}
}

func TestPublishSkipsNonMatchingPatterns(t *testing.T) {
	ps := NewPubSubService(nil, "instance-1")

	users := &eventRecorder{}
	conversations := &eventRecorder{}
	ps.Subscribe("user:*:events", users.handle)
	ps.Subscribe("conversation:*:events", conversations.handle)

	if err := ps.PublishToConversation(context.Background(), "conv-1", models.WSEventNewMessage, nil); err != nil {
		t.Fatalf("PublishToConversation: %v", err)
	}

	if users.count() != 0 {
		t.Errorf("user handler heard a conversation event")
	}
	if conversations.count() != 1 {
		t.Errorf("expected 1 conversation delivery, got %d", conversations.count())
	}
}

func TestMatchChannel(t *testing.T) {
	tests := []struct {
		pattern string
		channel string
		want    bool
	}{
		{"user:*:events", "user:42:events", true},
		{"user:*:events", "conversation:42:events", false},
		{"user:*:events", "user:42:other", false},
		{"user:42:events", "user:42:events", true},
		{"user:*:events", "user:42", false},
	}
	for _, tt := range tests {
		if got := matchChannel(tt.pattern, tt.channel); got != tt.want {
			t.Errorf("matchChannel(%q, %q) = %v, want %v", tt.pattern, tt.channel, got, tt.want)
		}
	}
}
