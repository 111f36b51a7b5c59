package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PubSubService fans out events to subscribed handlers. Publishing
// delivers to this instance's handlers directly and to other instances
// through Redis; the Redis consumer skips same-instance events so a
// local client never hears an event twice.
type PubSubService struct {
	redis      *RedisService
	pubsub     *redis.PubSub
	handlers   map[string][]EventHandler
	mu         sync.RWMutex
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
}

// EventHandler is a callback for handling pub/sub events
type EventHandler func(channel string, event *PubSubEvent)

// PubSubEvent represents an event sent via pub/sub
type PubSubEvent struct {
	Type       string                 `json:"type"`
	UserID     string                 `json:"userId,omitempty"`
	InstanceID string                 `json:"instanceId"`
	Payload    map[string]interface{} `json:"payload"`
}

// NewPubSubService creates a new pub/sub service
func NewPubSubService(redisService *RedisService, instanceID string) *PubSubService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PubSubService{
		redis:      redisService,
		handlers:   make(map[string][]EventHandler),
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Subscribe registers a handler for a channel pattern
func (s *PubSubService) Subscribe(pattern string, handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[pattern] = append(s.handlers[pattern], handler)
	log.Printf("📡 [PUBSUB] Subscribed to pattern: %s", pattern)
}

// Start begins listening for pub/sub messages
func (s *PubSubService) Start() error {
	client := s.redis.Client()

	s.pubsub = client.PSubscribe(s.ctx,
		"user:*:events",
		"conversation:*:events",
	)

	// Wait for subscription confirmation
	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return err
	}

	go s.processMessages()

	log.Printf("✅ [PUBSUB] Started listening for events (instance: %s)", s.instanceID)
	return nil
}

func (s *PubSubService) processMessages() {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

func (s *PubSubService) handleMessage(msg *redis.Message) {
	var event PubSubEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to unmarshal event: %v", err)
		return
	}

	// Skip events from this instance: publish already delivered them
	// to local handlers
	if event.InstanceID == s.instanceID {
		return
	}

	go s.dispatch(msg.Channel, &event)
}

// dispatch invokes every handler whose pattern matches the channel.
func (s *PubSubService) dispatch(channel string, event *PubSubEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for pattern, handlers := range s.handlers {
		if matchChannel(pattern, channel) {
			for _, handler := range handlers {
				handler(channel, event)
			}
		}
	}
}

// PublishToUser publishes an event to a user's channel
func (s *PubSubService) PublishToUser(ctx context.Context, userID, eventType string, payload map[string]interface{}) error {
	return s.publish(ctx, "user:"+userID+":events", &PubSubEvent{
		Type:       eventType,
		UserID:     userID,
		InstanceID: s.instanceID,
		Payload:    payload,
	})
}

// PublishToConversation publishes an event to a conversation's channel
func (s *PubSubService) PublishToConversation(ctx context.Context, conversationID, eventType string, payload map[string]interface{}) error {
	return s.publish(ctx, "conversation:"+conversationID+":events", &PubSubEvent{
		Type:       eventType,
		InstanceID: s.instanceID,
		Payload:    payload,
	})
}

func (s *PubSubService) publish(ctx context.Context, channel string, event *PubSubEvent) error {
	// Local handlers hear the event directly; the Redis hop only needs
	// to reach other instances
	s.dispatch(channel, event)

	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.redis.Publish(ctx, channel, data)
}

// Stop stops the pub/sub service
func (s *PubSubService) Stop() error {
	s.cancel()
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}

// matchChannel checks if a channel matches a pattern like "user:*:events"
func matchChannel(pattern, channel string) bool {
	if pattern == channel {
		return true
	}

	patternParts := strings.Split(pattern, ":")
	channelParts := strings.Split(channel, ":")

	if len(patternParts) != len(channelParts) {
		return false
	}

	for i, part := range patternParts {
		if part != "*" && part != channelParts[i] {
			return false
		}
	}

	return true
}
