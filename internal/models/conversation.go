package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is the coordination channel created when a bounty request
// is accepted. It is scoped to exactly two participants (poster and
// accepted hunter) plus the bounty as context. Its lifetime is
// independent of the bounty.
type Conversation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BountyID     string             `bson:"bountyId" json:"bounty_id"`
	PosterID     string             `bson:"posterId" json:"poster_id"`
	HunterID     string             `bson:"hunterId" json:"hunter_id"`
	LastMessage  string             `bson:"lastMessage,omitempty" json:"last_message,omitempty"`
	MessageCount int                `bson:"messageCount" json:"message_count"`
	CreatedAt    time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Message is a single message within a conversation.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversationId" json:"conversation_id"`
	SenderID       string             `bson:"senderId" json:"sender_id"`
	Content        string             `bson:"content" json:"content"`
	System         bool               `bson:"system,omitempty" json:"system,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"created_at"`
}

// SendMessageRequest is the request body for posting a message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ConversationListItem is a summary for listing a user's conversations.
type ConversationListItem struct {
	ID           string    `json:"id"`
	BountyID     string    `json:"bounty_id"`
	PosterID     string    `json:"poster_id"`
	HunterID     string    `json:"hunter_id"`
	LastMessage  string    `json:"last_message,omitempty"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToListItem converts a Conversation to its list summary.
func (c *Conversation) ToListItem() ConversationListItem {
	return ConversationListItem{
		ID:           c.ID.Hex(),
		BountyID:     c.BountyID,
		PosterID:     c.PosterID,
		HunterID:     c.HunterID,
		LastMessage:  c.LastMessage,
		MessageCount: c.MessageCount,
		UpdatedAt:    c.UpdatedAt,
	}
}
