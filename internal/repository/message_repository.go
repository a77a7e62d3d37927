package repository

import (
	"context"
	"time"

	"devtalk/internal/entity"
	apperrors "devtalk/pkg/errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository interface {
	// Append creates a new message in the sent state.
	Append(ctx context.Context, conversationId string, senderId int64, content string) (entity.Message, error)
	Get(ctx context.Context, messageId string) (entity.Message, error)
	// ListByConversation returns messages ordered by timestamp ascending,
	// ties broken by id.
	ListByConversation(ctx context.Context, conversationId string) ([]entity.Message, error)
	// FindUnreadFrom returns messages sent by senderId that are not read yet.
	FindUnreadFrom(ctx context.Context, conversationId string, senderId int64) ([]entity.Message, error)
	// SetStatus advances a message's status. The update is guarded on the
	// allowed predecessor states so a backward write can never match.
	// Returns false when the message already is at the requested status.
	SetStatus(ctx context.Context, messageId string, status entity.MessageStatus, readAt *time.Time) (bool, error)
	// MarkReadBySender transitions every unread message from senderId in the
	// conversation to read in one bulk write.
	MarkReadBySender(ctx context.Context, conversationId string, senderId int64, readAt time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type messageRepository struct {
	db mongo.Database
}

func NewMessageRepository(db mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection("messages")

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "conversationId", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().SetName("idx_messages_conversation_time"),
		},
		{
			Keys:    bson.D{{Key: "senderId", Value: 1}},
			Options: options.Index().SetName("idx_messages_sender"),
		},
	})
	return err
}

func (r *messageRepository) Append(ctx context.Context, conversationId string, senderId int64, content string) (entity.Message, error) {
	collection := r.db.Collection("messages")

	message := entity.Message{
		Id:             uuid.New().String(),
		ConversationId: conversationId,
		SenderId:       senderId,
		Content:        content,
		Status:         entity.MessageStatusSent,
		Timestamp:      time.Now().UTC(),
	}

	_, err := collection.InsertOne(ctx, message)
	if err != nil {
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"_id": messageId}

	var message entity.Message
	err := collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Message{}, apperrors.ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationId string) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{"conversationId": conversationId}

	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) FindUnreadFrom(ctx context.Context, conversationId string, senderId int64) ([]entity.Message, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"conversationId": conversationId,
		"senderId":       senderId,
		"status":         bson.M{"$ne": entity.MessageStatusRead},
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// allowedPredecessors returns the states a message may be in for a
// transition to status to be legal.
func allowedPredecessors(status entity.MessageStatus) bson.A {
	switch status {
	case entity.MessageStatusDelivered:
		return bson.A{entity.MessageStatusSent}
	case entity.MessageStatusRead:
		return bson.A{entity.MessageStatusSent, entity.MessageStatusDelivered}
	}
	return bson.A{}
}

func (r *messageRepository) SetStatus(ctx context.Context, messageId string, status entity.MessageStatus, readAt *time.Time) (bool, error) {
	if !status.Valid() || status == entity.MessageStatusSent {
		return false, apperrors.ErrInvalidStatusTransition
	}

	set := bson.M{"status": status}
	if status == entity.MessageStatusRead {
		if readAt == nil {
			now := time.Now().UTC()
			readAt = &now
		}
		set["readAt"] = *readAt
	}

	collection := r.db.Collection("messages")
	filter := bson.M{
		"_id":    messageId,
		"status": bson.M{"$in": allowedPredecessors(status)},
	}

	res, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// nothing matched: absent, already at the requested status, or beyond it
	current, err := r.Get(ctx, messageId)
	if err != nil {
		return false, err
	}
	if current.Status == status {
		return false, nil
	}
	if current.Status.CanAdvanceTo(status) {
		// raced with a concurrent writer; the forward transition happened
		return false, nil
	}
	return false, apperrors.ErrInvalidStatusTransition
}

func (r *messageRepository) MarkReadBySender(ctx context.Context, conversationId string, senderId int64, readAt time.Time) (int64, error) {
	collection := r.db.Collection("messages")
	filter := bson.M{
		"conversationId": conversationId,
		"senderId":       senderId,
		"status":         bson.M{"$ne": entity.MessageStatusRead},
	}
	update := bson.M{
		"$set": bson.M{
			"status": entity.MessageStatusRead,
			"readAt": readAt,
		},
	}

	res, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}

	return res.ModifiedCount, nil
}
