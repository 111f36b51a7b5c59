package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"bountyboard/internal/database"
	"bountyboard/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationService stores coordination conversations and their
// messages in MongoDB and fans events out over pub/sub.
type ConversationService struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
	pubsub        *PubSubService
}

// NewConversationService creates a new conversation service.
// pubsub may be nil; events are then skipped.
func NewConversationService(mongoDB *database.MongoDB, pubsub *PubSubService) *ConversationService {
	return &ConversationService{
		conversations: mongoDB.Database().Collection(database.CollectionConversations),
		messages:      mongoDB.Database().Collection(database.CollectionMessages),
		pubsub:        pubsub,
	}
}

// EnsureIndexes creates the indexes the queries depend on.
func (s *ConversationService) EnsureIndexes(ctx context.Context) error {
	_, err := s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bountyId", Value: 1}, {Key: "posterId", Value: 1}, {Key: "hunterId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

// CreateBountyConversation is the primary creation path: an idempotent
// get-or-create scoped to (bounty, poster, hunter), seeded with an
// initial system message. Safe to retry; a duplicate create returns the
// existing conversation.
func (s *ConversationService) CreateBountyConversation(ctx context.Context, bountyID, posterID, hunterID models.ID, bountyTitle string) (*models.Conversation, error) {
	filter := bson.M{
		"bountyId": bountyID.String(),
		"posterId": posterID.String(),
		"hunterId": hunterID.String(),
	}

	var existing models.Conversation
	err := s.conversations.FindOne(ctx, filter).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	now := time.Now()
	conv := &models.Conversation{
		BountyID:  bountyID.String(),
		PosterID:  posterID.String(),
		HunterID:  hunterID.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.conversations.InsertOne(ctx, conv)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a concurrent create; fetch the winner
			if ferr := s.conversations.FindOne(ctx, filter).Decode(&existing); ferr == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)

	// Seed the channel; a failed system message is logged, not fatal
	systemText := fmt.Sprintf("Bounty %q is now in progress. Use this conversation to coordinate.", bountyTitle)
	if _, err := s.sendMessage(ctx, conv.ID, posterID.String(), systemText, true); err != nil {
		log.Printf("⚠️  [CONVERSATION] Failed to send initial message for %s: %v", conv.ID.Hex(), err)
		GetMetrics().RecordSecondaryFailure("conversation_seed")
	}

	s.publishCreated(ctx, conv)
	return conv, nil
}

// CreateFallbackConversation is the secondary tier used when the
// primary path fails: it builds the conversation row-by-row without the
// unique-index upsert guarantees. Its message-send failure is likewise
// non-fatal.
func (s *ConversationService) CreateFallbackConversation(ctx context.Context, bountyID, posterID, hunterID models.ID, bountyTitle string) (*models.Conversation, error) {
	now := time.Now()
	conv := &models.Conversation{
		BountyID:  bountyID.String(),
		PosterID:  posterID.String(),
		HunterID:  hunterID.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.conversations.InsertOne(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("fallback conversation create failed: %w", err)
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)

	systemText := fmt.Sprintf("Bounty %q is now in progress.", bountyTitle)
	if _, err := s.sendMessage(ctx, conv.ID, posterID.String(), systemText, true); err != nil {
		log.Printf("⚠️  [CONVERSATION] Fallback initial message failed for %s: %v", conv.ID.Hex(), err)
		GetMetrics().RecordSecondaryFailure("conversation_seed")
	}

	s.publishCreated(ctx, conv)
	return conv, nil
}

// SendMessage posts a user message to a conversation the sender
// participates in.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID primitive.ObjectID, senderID models.ID, content string) (*models.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.PosterID != senderID.String() && conv.HunterID != senderID.String() {
		return nil, database.NewError(database.CodePermission, "not a participant of this conversation", nil)
	}

	return s.sendMessage(ctx, conversationID, senderID.String(), content, false)
}

func (s *ConversationService) sendMessage(ctx context.Context, conversationID primitive.ObjectID, senderID, content string, system bool) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		System:         system,
		CreatedAt:      time.Now(),
	}

	res, err := s.messages.InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)

	_, err = s.conversations.UpdateByID(ctx, conversationID, bson.M{
		"$set": bson.M{"lastMessage": content, "updatedAt": msg.CreatedAt},
		"$inc": bson.M{"messageCount": 1},
	})
	if err != nil {
		log.Printf("⚠️  [CONVERSATION] Failed to bump conversation %s: %v", conversationID.Hex(), err)
	}

	if s.pubsub != nil {
		payload := map[string]interface{}{
			"conversation_id": conversationID.Hex(),
			"sender_id":       senderID,
			"content":         content,
			"system":          system,
		}
		if err := s.pubsub.PublishToConversation(ctx, conversationID.Hex(), models.WSEventNewMessage, payload); err != nil {
			log.Printf("⚠️  [CONVERSATION] Failed to publish message event: %v", err)
		}
	}

	return msg, nil
}

// GetConversation returns one conversation by id.
func (s *ConversationService) GetConversation(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, database.NewError(database.CodeNotFound, "conversation not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &conv, nil
}

// ListForUser returns conversation summaries the user participates in,
// most recently active first.
func (s *ConversationService) ListForUser(ctx context.Context, userID models.ID) ([]models.ConversationListItem, error) {
	cursor, err := s.conversations.Find(ctx,
		bson.M{"$or": []bson.M{
			{"posterId": userID.String()},
			{"hunterId": userID.String()},
		}},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ConversationListItem
	for cursor.Next(ctx) {
		var conv models.Conversation
		if err := cursor.Decode(&conv); err != nil {
			return nil, err
		}
		out = append(out, conv.ToListItem())
	}
	return out, cursor.Err()
}

// ListMessages returns a conversation's messages in send order.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID primitive.ObjectID, userID models.ID, limit int64) ([]models.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.PosterID != userID.String() && conv.HunterID != userID.String() {
		return nil, database.NewError(database.CodePermission, "not a participant of this conversation", nil)
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	cursor, err := s.messages.Find(ctx,
		bson.M{"conversationId": conversationID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Message
	for cursor.Next(ctx) {
		var msg models.Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, cursor.Err()
}

func (s *ConversationService) publishCreated(ctx context.Context, conv *models.Conversation) {
	if s.pubsub == nil {
		return
	}

	payload := map[string]interface{}{
		"conversation_id": conv.ID.Hex(),
		"bounty_id":       conv.BountyID,
	}
	for _, userID := range []string{conv.PosterID, conv.HunterID} {
		if err := s.pubsub.PublishToUser(ctx, userID, models.WSEventConversation, payload); err != nil {
			log.Printf("⚠️  [CONVERSATION] Failed to publish created event: %v", err)
		}
	}
}
